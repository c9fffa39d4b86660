// sparkysuppress manages a SparkPost customer suppression list from a local
// CSV file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "time/tzdata"

	"github.com/tuck1s/sparkySuppress/internal/config"
	"github.com/tuck1s/sparkySuppress/internal/csvio"
	"github.com/tuck1s/sparkySuppress/internal/sparkpost"
	"github.com/tuck1s/sparkySuppress/internal/suppression"
)

const defaultConfigPath = "sparkpost.yaml"

func usage() {
	prog := filepath.Base(os.Args[0])
	fmt.Println("\nNAME")
	fmt.Println("   " + prog)
	fmt.Println("   Manage SparkPost customer suppression list.")
	fmt.Println("\nSYNOPSIS")
	fmt.Println("  ./" + prog + " cmd supp_list [from_time to_time]")
	fmt.Println("\nMANDATORY PARAMETERS")
	fmt.Println("    cmd                  check|retrieve|update|delete")
	fmt.Println("    supp_list            .CSV format file, containing as a minimum the email recipients")
	fmt.Println("\nOPTIONAL PARAMETERS")
	fmt.Println("    from_time            } for retrieve only")
	fmt.Println("    to_time              } Format YYYY-MM-DDTHH:MM")
	fmt.Println("\nCOMMANDS")
	fmt.Println("    check                Validates the format of a file, checking that email addresses are well-formed, but does not upload them.")
	fmt.Println("    retrieve             Gets your current suppression-list contents from SparkPost back into a file.")
	fmt.Println("    update               Uploads file contents to SparkPost. Also verifies as \"check\" does.")
	fmt.Println("    delete               Removes file contents from the SparkPost suppression list, one entry at a time.")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}
	cmd, fname := os.Args[1], os.Args[2]

	cfgPath := os.Getenv("SPARKYSUPPRESS_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		fatal(fmt.Errorf("loading %s: %w", cfgPath, err))
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	ctx := context.Background()

	switch cmd {
	case "check":
		runFilePass(ctx, cfg, fname, suppression.NoopAction{})

	case "update":
		client := sparkpost.NewClient(cfg.SparkPost, sparkpost.UpsertBackoff)
		runFilePass(ctx, cfg, fname, &suppression.UpsertAction{Client: client})

	case "delete":
		sessions := make([]suppression.RecipientDeleter, cfg.Suppress.DeleteThreads)
		for i := range sessions {
			sessions[i] = sparkpost.NewClient(cfg.SparkPost, sparkpost.DeleteBackoff)
		}
		pool, err := suppression.NewDeletePool(sessions, cfg.SparkPost.Timeout()+30*time.Second)
		if err != nil {
			fatal(err)
		}
		runFilePass(ctx, cfg, fname, &suppression.DeleteAction{Pool: pool})

	case "retrieve":
		runRetrieve(ctx, cfg, fname, os.Args[3:])

	default:
		usage()
		os.Exit(1)
	}
}

// runFilePass drives check, update, and delete: one sequential pass over the
// input file through the dedup/batch accumulator into the chosen action.
func runFilePass(ctx context.Context, cfg *config.Config, fname string, action suppression.Action) {
	in, err := csvio.Open(fname, cfg.Suppress.FileCharacterEncodings)
	if err != nil {
		fatal(err)
	}
	defer in.Close()
	fmt.Printf("File %s reads OK with encoding %s.\n\nLines in file: %d - checking contents are well-formed ..\n",
		fname, in.Encoding, in.Lines)

	proc := &suppression.Processor{
		Normalizer: suppression.Normalizer{
			TypeDefault:        cfg.Suppress.TypeDefault,
			DescriptionDefault: cfg.Suppress.DescriptionDefault,
		},
		Diag: os.Stdout,
	}
	acc := suppression.NewAccumulator(action, cfg.Suppress.BatchSize)

	sum, runErr := proc.Run(ctx, in.CSV(), acc)
	printSummary(action.Name(), sum)
	if runErr != nil {
		fatal(runErr)
	}
}

func printSummary(action string, s suppression.Summary) {
	fmt.Printf("\nChecked %d email addresses in %.2f seconds [run %s]\n",
		s.Processed, s.Elapsed.Seconds(), s.RunID)
	fmt.Printf("  good: %d  invalid: %d  duplicate: %d\n", s.Good, s.Invalid, s.Duplicates)
	fmt.Printf("  type from row: %d  type defaulted: %d\n", s.FlagsGood, s.Defaulted)
	if action != "check" {
		fmt.Printf("  done on SparkPost (%s): %d\n", action, s.Done)
	}
}

// runRetrieve drives cursor-based pagination of the remote list into fname.
func runRetrieve(ctx context.Context, cfg *config.Config, fname string, timeArgs []string) {
	var from, to string
	if len(timeArgs) > 0 {
		if len(timeArgs) < 2 || !suppression.ValidTimeArg(timeArgs[0]) || !suppression.ValidTimeArg(timeArgs[1]) {
			usage()
			os.Exit(1)
		}
		var err error
		if from, err = suppression.ComposeWithZone(timeArgs[0], cfg.Suppress.Timezone); err != nil {
			fatal(err)
		}
		if to, err = suppression.ComposeWithZone(timeArgs[1], cfg.Suppress.Timezone); err != nil {
			fatal(err)
		}
		fmt.Printf("Retrieving SparkPost suppression-list entries from %s to %s %s to %s\n",
			from, to, cfg.Suppress.Timezone, fname)
	} else {
		fmt.Println("Retrieving SparkPost suppression-list entries (any time-range) to", fname)
	}

	out, err := os.Create(fname)
	if err != nil {
		fatal(err)
	}
	defer out.Close()

	ew, err := csvio.NewEntryWriter(out, cfg.Suppress.Properties)
	if err != nil {
		fatal(err)
	}
	fmt.Println("Properties:", cfg.Suppress.Properties)

	fetcher := &suppression.Fetcher{
		Client:   sparkpost.NewClient(cfg.SparkPost, sparkpost.SearchBackoff),
		PerPage:  cfg.Suppress.BatchSize,
		Progress: os.Stdout,
	}
	n, runErr := fetcher.Run(ctx, ew, from, to)
	if err := ew.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		fatal(runErr)
	}
	fmt.Printf("Wrote %d entries to %s\n", n, fname)
}
