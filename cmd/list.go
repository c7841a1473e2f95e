package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zipray/zipray/pkg/reader"
	"github.com/zipray/zipray/pkg/source"
)

var listArchive string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the entries of a zip archive",
	Long: `Fetches only the end of the archive (the central directory) and
	prints every entry with its sizes and checksum.

	ex:
	zipray list -a archive.zip
	zipray list -a https://example.com/archive.zip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listArchive == "" {
			cmd.Usage()
			os.Exit(1)
		}

		src, err := source.Open(listArchive)
		if err != nil {
			log.Errorf("error opening archive (location: %s), err: %v", listArchive, err)
			return err
		}
		z, err := reader.NewArchive(src)
		if err != nil {
			log.Errorf("error reading archive (location: %s), err: %v", listArchive, err)
			return err
		}
		defer z.Close()

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SIZE\tCOMPRESSED\tCRC32\tNAME")
		for _, e := range z.List() {
			fmt.Fprintf(w, "%s\t%s\t%08x\t%s\n",
				humanize.Bytes(e.UncompressedSize),
				humanize.Bytes(e.CompressedSize),
				e.CRC32,
				e.Name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.PersistentFlags().StringVarP(&listArchive, "archive", "a", "", "(required) archive location: path, http(s):// URL or s3://bucket/key")
}
