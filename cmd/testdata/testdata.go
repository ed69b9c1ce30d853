package testdata

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
)

const (
	fileSize = 256 << 10
	holeOff  = 64 << 10
	holeLen  = 128 << 10
)

type Command struct {
	outputDir string
}

func (*Command) Name() string     { return "testdata" }
func (*Command) Synopsis() string { return "Generate sparse and dense fixture files" }
func (*Command) Usage() string {
	return `testdata -out <directory>:
  Generate a tree of plain files (dense/), sparse files written end to end
  (full/) and sparse files with a punched hole (holey/) for trying out
  conversion.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputDir, "out", "", "output directory path (required)")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.outputDir == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	if err := generateTestData(c.outputDir); err != nil {
		log.Printf("Failed to generate test data: %v", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

type fixture struct {
	dir   string
	count int
	write func(f *os.File, data []byte) error
}

func generateTestData(outputDir string) error {
	fixtures := []fixture{
		{"dense", 3, writeDense},
		{"full", 3, writeFull},
		{"full/nested", 2, writeFull},
		{"holey", 3, writeHoleyFile},
		{"holey/nested", 2, writeHoleyFile},
	}

	rng := rand.New(rand.NewSource(1))
	files := 0
	for _, fx := range fixtures {
		dir := filepath.Join(outputDir, fx.dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", fx.dir, err)
		}

		for i := 0; i < fx.count; i++ {
			// Random bytes keep transparent compression from shrinking
			// the allocation below the logical size.
			data := make([]byte, fileSize)
			rng.Read(data)

			path := filepath.Join(dir, fmt.Sprintf("file%d.bin", i+1))
			if err := writeFixture(path, data, fx.write); err != nil {
				return fmt.Errorf("failed to create file %s: %w", path, err)
			}
			files++
		}
	}

	log.Printf("Generated %d directories and %d files in %s", len(fixtures), files, outputDir)
	return nil
}

func writeFixture(path string, data []byte, write func(*os.File, []byte) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeDense(f *os.File, data []byte) error {
	_, err := f.Write(data)
	return err
}

func writeFull(f *os.File, data []byte) error {
	if err := markSparse(f); err != nil {
		return fmt.Errorf("mark sparse: %w", err)
	}
	_, err := f.Write(data)
	return err
}

func writeHoleyFile(f *os.File, data []byte) error {
	if err := markSparse(f); err != nil {
		return fmt.Errorf("mark sparse: %w", err)
	}
	clear(data[holeOff : holeOff+holeLen])
	return writeHoley(f, data, holeOff, holeLen)
}
