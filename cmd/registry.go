package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NomadBuilder/facetrace/internal/config"
	"github.com/NomadBuilder/facetrace/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the threat domain registry",
}

var registryAddCmd = &cobra.Command{
	Use:   "add <domain> <category>",
	Short: "Add a domain to the threat registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegistryAdd,
}

var registryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import domains from a file of 'domain,category' lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryImport,
}

var registryCheckCmd = &cobra.Command{
	Use:   "check <domain>",
	Short: "Check whether a domain is on the threat list",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryCheck,
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryAddCmd, registryImportCmd, registryCheckCmd)
}

func openRegistry(ctx context.Context) (registry.Registry, error) {
	cfg := config.Load()
	if err := os.MkdirAll(config.DataDir(), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return registry.Open(ctx, cfg.Registry.URL, newLogger())
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reg, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := registry.Seed(ctx, reg, map[string]string{args[0]: args[1]}); err != nil {
		return err
	}
	fmt.Printf("Added %s (%s)\n", args[0], args[1])
	return nil
}

func runRegistryImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	entries := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		domain, category, found := strings.Cut(text, ",")
		if !found {
			return fmt.Errorf("line %d: expected 'domain,category'", line)
		}
		entries[strings.TrimSpace(domain)] = strings.TrimSpace(category)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	ctx := context.Background()
	reg, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := registry.Seed(ctx, reg, entries); err != nil {
		return err
	}
	fmt.Printf("Imported %d domain(s)\n", len(entries))
	return nil
}

func runRegistryCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reg, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()

	flagged, reason, err := reg.Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	if flagged {
		fmt.Printf("%s is listed: %s\n", registry.CanonicalDomain(args[0]), reason)
	} else {
		fmt.Printf("%s is not listed\n", registry.CanonicalDomain(args[0]))
	}
	return nil
}
