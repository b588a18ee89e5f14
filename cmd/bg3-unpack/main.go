package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/byteblender21/bg3-modding-utilities/internal/convert"
	"github.com/byteblender21/bg3-modding-utilities/internal/pak"
	"github.com/byteblender21/bg3-modding-utilities/internal/utils"
)

const (
	exitFatal   = 1
	exitUsage   = 2
	exitPartial = 3
)

func main() {
	input := flag.String("input", "", "Path to the .pak archive to unpack")
	flag.StringVar(input, "i", "", "Shorthand for -input")
	output := flag.String("o", "", "Extraction directory (defaults to the archive path without its extension)")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of entries extracted in parallel")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	quiet := flag.Bool("quiet", false, "Only log warnings and errors")
	noColor := flag.Bool("no-color", false, "Disable coloured log prefixes")
	manifestPath := flag.String("manifest", "", "Write a JSON manifest of the extracted files to this path")
	digests := flag.Bool("digests", false, "Record a BLAKE2b-256 digest of every extracted file (implied by -manifest)")
	convertDDS := flag.Bool("convert-dds", false, "Convert extracted DXT1/DXT5 .dds textures to .png")
	pngOut := flag.String("png-out", "", "Directory for converted PNGs (defaults to next to each texture)")
	flag.Parse()

	switch {
	case *debugFlag:
		utils.CurrentLevel = utils.LevelDebug
	case *quiet:
		utils.CurrentLevel = utils.LevelWarn
	}
	utils.NoColor = *noColor

	if *input == "" && flag.NArg() == 1 {
		*input = flag.Arg(0)
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: bg3-unpack -i <archive.pak> [flags]")
		flag.PrintDefaults()
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	now := time.Now()
	res, err := pak.ExtractFile(ctx, *input, pak.Options{
		Root:    *output,
		Workers: *workers,
		Digests: *digests || *manifestPath != "",
	})
	if err != nil {
		utils.Error("Failed to unpack %s: %v", *input, err)
		if errors.Is(err, context.Canceled) {
			utils.Warn("Extraction interrupted")
		}
		os.Exit(exitFatal)
	}

	utils.Info("Unpacked %d files (%s) into %s", len(res.Entries), humanize.Bytes(uint64(res.Bytes())), res.Root)
	for _, f := range res.Failures {
		utils.Warn("Not extracted: %s: %v", f.Name, f.Err)
	}

	if *manifestPath != "" {
		if err := writeManifest(*manifestPath, res); err != nil {
			utils.Error("Failed to write manifest: %v", err)
			os.Exit(exitFatal)
		}
		utils.Info("Manifest written to %s", *manifestPath)
	}

	if *convertDDS {
		if _, err := convert.BulkConvertDDS(ctx, res.Root, *pngOut, *workers); err != nil {
			utils.Error("Texture conversion stopped: %v", err)
		}
	}

	elapsed := time.Since(now)
	if elapsed < time.Second {
		utils.Info("Unpacking took %dms", elapsed.Milliseconds())
	} else {
		utils.Info("Unpacking took %ds", int(elapsed.Seconds()))
	}

	if len(res.Failures) > 0 {
		utils.Error("%d of %d entries failed", len(res.Failures), len(res.Failures)+len(res.Entries))
		os.Exit(exitPartial)
	}
}

func writeManifest(path string, res *pak.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.WriteManifest(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
