package cmd

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zipray/zipray/pkg/reader"
	"github.com/zipray/zipray/pkg/source"
)

var (
	archive  string
	files    []string
	outFiles []string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one or more entries from a zip archive",
	Long: `Reads only the byte ranges of the archive containing the central
	directory and the requested entries, then decompresses the data.

	ex:
	zipray extract -a archive.zip -f plan.txt
	zipray extract -a https://example.com/archive.zip -f plan.txt -o my/directory/plan.txt
	zipray extract -a s3://myBucket/myKey -f plan1.txt -o plan1.txt -f plan2.txt -o plan2.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(files) == 0 || archive == "" {
			cmd.Usage()
			os.Exit(1)
		}
		if len(outFiles) > 0 && len(outFiles) != len(files) {
			cmd.Usage()
			log.Error("error: must specify one output file for every entry name")
			os.Exit(1)
		}

		src, err := source.Open(archive)
		if err != nil {
			log.Errorf("error opening archive (location: %s), err: %v", archive, err)
			return err
		}
		z, err := reader.NewArchive(src)
		if err != nil {
			log.Errorf("error reading archive (location: %s), err: %v", archive, err)
			return err
		}
		defer func() {
			if err := z.Close(); err != nil {
				log.Errorf("error closing archive, err: %v", err)
			}
		}()

		for i, name := range files {
			out := ""
			if len(outFiles) > 0 {
				out = outFiles[i]
			}
			if err := extractEntry(z, name, out); err != nil {
				log.Errorf("error extracting entry (name: %s), err: %v", name, err)
				return err
			}
		}
		return nil
	},
}

func extractEntry(z *reader.Archive, name, out string) error {
	f, err := z.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	w := io.Writer(os.Stdout)
	if out != "" {
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		of, err := os.OpenFile(out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer func() {
			if err := of.Close(); err != nil {
				log.Errorf("error closing file (name: %s), err: %v", out, err)
			}
		}()
		w = of
	}

	n, err := io.Copy(w, f)
	if err != nil {
		return err
	}
	log.Debugf("extracted %s (%d bytes)", name, n)
	return nil
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.PersistentFlags().StringVarP(&archive, "archive", "a", "", "(required) archive location: path, http(s):// URL or s3://bucket/key")
	extractCmd.PersistentFlags().StringSliceVarP(&files, "file", "f", []string{}, "(required) names of the entries to extract")
	extractCmd.PersistentFlags().StringSliceVarP(&outFiles, "out", "o", []string{}, "name(s) of the file(s) to write output to (default stdout)")
}
