package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/codecbackend/ffmpegproc"
	"github.com/mediabunnygo/mediabunny/internal/convert/core"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/mux/adts"
	"github.com/mediabunnygo/mediabunny/internal/mux/fmp4"
	"github.com/mediabunnygo/mediabunny/internal/mux/mkv"
	"github.com/mediabunnygo/mediabunny/internal/mux/mp3"
	"github.com/mediabunnygo/mediabunny/internal/mux/ogg"
	"github.com/mediabunnygo/mediabunny/internal/mux/wav"
	"github.com/mediabunnygo/mediabunny/internal/util"
)

var convertOutputContainer string

var convertCmd = &cobra.Command{
	Use:   "convert <input.wav> <output>",
	Short: "Convert a container file synchronously",
	Long: `Convert runs the conversion controller to completion in the
foreground, printing progress to stderr. Only WAV input is currently
supported by the built-in demuxer; the output container is selected
with --to or inferred from the output file's extension.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertOutputContainer, "to", "", "output container: mp4, mkv, wav, mp3, adts, ogg (default: inferred from output extension)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]
	logger := slog.Default()

	containerName := convertOutputContainer
	if containerName == "" {
		containerName = inferContainerFromExt(outputPath)
	}
	container, ok := codec.ParseContainer(containerName)
	if !ok {
		return fmt.Errorf("unsupported or undetermined output container %q", containerName)
	}

	in, closeIn, err := openConvertInput(inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	sink, outFile, err := openConvertSink(container, outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	ffmpegBin, err := util.FindBinary("ffmpeg", "MEDIABUNNY_FFMPEG_BIN")
	if err != nil {
		ffmpegBin = "ffmpeg"
	}
	registry := codecbackend.NewRegistry()
	registry.Register(ffmpegproc.New(ffmpegBin, logger))

	ctrl, err := core.NewBuilder().
		WithInput(in).
		WithSink(sink).
		WithRegistry(registry).
		WithOptions(core.Options{OutputContainer: container}).
		WithLogger(logger).
		Build(context.Background())
	if err != nil {
		return fmt.Errorf("building conversion: %w", err)
	}

	ctrl.OnProgress(func(fraction float64) {
		fmt.Fprintf(os.Stderr, "\rconverting... %.0f%%", fraction*100)
	})

	if err := ctrl.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("conversion failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "\rconverting... 100%")
	return nil
}

func inferContainerFromExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return ""
}

func openConvertInput(path string) (demux.Input, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening %s: %w", path, err)
	}
	in, err := demux.NewWAVInput(f)
	if err != nil {
		_ = f.Close()
		return nil, func() {}, fmt.Errorf("demuxing %s: %w", path, err)
	}
	return in, func() { _ = f.Close() }, nil
}

func openConvertSink(container codec.Container, path string) (mux.Adapter, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}

	var adapter mux.Adapter
	switch container {
	case codec.ContainerMP4:
		adapter = fmp4.New(f)
	case codec.ContainerMKV:
		adapter = mkv.New(f)
	case codec.ContainerWAV:
		adapter = wav.New(f)
	case codec.ContainerMP3:
		adapter = mp3.New(f)
	case codec.ContainerADTS:
		adapter = adts.New(f)
	case codec.ContainerOgg:
		adapter = ogg.New(f)
	default:
		_ = f.Close()
		return nil, nil, fmt.Errorf("no muxer for container %s", container)
	}
	return adapter, f, nil
}
