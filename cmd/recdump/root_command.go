package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/clayne/brec/brec"
)

func newRootCommand() *cobra.Command {
	var asJSON bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "recdump <plugin>",
		Short: "Inspect a plugin file's header and record inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(logLevel); err != nil {
				return err
			}
			return runDump(args[0], asJSON)
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "dump the file header record as JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	return cmd
}

func initLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger()
	return nil
}

func runDump(path string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	log.Debug().Str("file", path).Int("bytes", len(data)).Msg("read plugin")

	// The header record's own references never leave the file, so the
	// file itself is the whole master table for this load.
	ctx := brec.NewLoadContext([]string{path})
	header, err := brec.LoadRecord(fileHeaderSchema, brec.NewReader(path, data), ctx)
	if err != nil {
		return fmt.Errorf("reading file header: %w", err)
	}

	if asJSON {
		out, err := brec.MarshalRecord(fileHeaderSchema, header)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printHeader(path, header)

	counts, err := countRecords(path, data)
	if err != nil {
		return fmt.Errorf("walking record tree: %w", err)
	}
	fmt.Println(renderCounts(counts))
	return nil
}

func printHeader(path string, header *brec.Record) {
	fmt.Printf("%s\n", path)
	fmt.Printf("  version:  %.2f\n", header.Float("version"))
	fmt.Printf("  records:  %d\n", header.Uint("num_records"))
	if author := header.Str("author"); author != "" {
		fmt.Printf("  author:   %s\n", author)
	}
	if desc := header.Str("description"); desc != "" {
		fmt.Printf("  summary:  %s\n", desc)
	}
	masters := header.List("masters")
	fmt.Printf("  masters:  %d\n", len(masters))
	for i, m := range masters {
		fmt.Printf("    [%02X] %s\n", i, m.Str("name"))
	}
}

// recordCount aggregates one record type's footprint in the file.
type recordCount struct {
	sig     brec.Signature
	records int
	bytes   int
}

func countRecords(path string, data []byte) ([]recordCount, error) {
	bySig := make(map[brec.Signature]*recordCount)
	err := brec.WalkFile(path, data, func(hdr brec.RecordHeader, payload []byte) error {
		c := bySig[hdr.Sig]
		if c == nil {
			c = &recordCount{sig: hdr.Sig}
			bySig[hdr.Sig] = c
		}
		c.records++
		c.bytes += brec.RecordHeaderSize + len(payload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	counts := make([]recordCount, 0, len(bySig))
	for _, c := range bySig {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].records != counts[j].records {
			return counts[i].records > counts[j].records
		}
		return counts[i].sig.String() < counts[j].sig.String()
	})
	return counts, nil
}
