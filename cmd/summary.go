package cmd

import (
	"fmt"

	"github.com/NomadBuilder/facetrace/internal/face"
	"github.com/NomadBuilder/facetrace/internal/session"
)

// printSummary prints a human-readable trace result to stdout.
func printSummary(result *session.Result) {
	fmt.Printf("Trace %s finished in %s\n\n", result.SessionID, result.Elapsed.Round(0))

	if df := result.Deepfake; df != nil {
		if df.IsDeepfake {
			fmt.Printf("⚠ The image shows signs of manipulation (confidence %.2f, %s)\n", df.Confidence, df.Method)
			for _, ind := range df.Indicators {
				fmt.Printf("  - %s\n", ind)
			}
		} else {
			fmt.Printf("No manipulation detected (%s)\n", df.Method)
		}
		fmt.Println()
	}

	if result.TotalResults == 0 {
		fmt.Println("No appearances of this face were found.")
		return
	}

	fmt.Printf("Found %d result(s), %d on known abusive sites:\n\n", result.TotalResults, result.FlaggedCount)
	for _, r := range result.Results {
		marker := " "
		if r.Flagged {
			marker = "!"
		}
		switch {
		case r.DuplicateOf != "":
			fmt.Printf("%s %s (duplicate of %s)\n", marker, r.URL, r.DuplicateOf)
		case r.Verified && r.MatchConfidence != string(face.TierNoMatch):
			fmt.Printf("%s %s  %s (%.2f) via %s\n", marker, r.URL, r.MatchConfidence, r.FaceSimilarity, r.SourceName)
		case r.Verified:
			fmt.Printf("%s %s  no face match via %s\n", marker, r.URL, r.SourceName)
		default:
			fmt.Printf("%s %s  unverified via %s\n", marker, r.URL, r.SourceName)
		}
		if r.Flagged {
			fmt.Printf("    %s\n", r.FlagReason)
		}
	}
}
