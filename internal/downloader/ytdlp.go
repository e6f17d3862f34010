package downloader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"content-rag/internal/config"
	"content-rag/internal/helper"
	"content-rag/internal/models"
)

// Runner executes an external program and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// YTDLP fetches the audio track of a video URL with yt-dlp.
type YTDLP struct {
	binary string
	format string
	run    Runner
}

func NewYTDLP(cfg *config.VideoConfig, run Runner) *YTDLP {
	if run == nil {
		run = ExecRunner
	}
	return &YTDLP{binary: cfg.Downloader, format: cfg.AudioFormat, run: run}
}

// Download writes the audio of url into dir and returns the file path.
// The caller owns dir and removes it.
func (d *YTDLP) Download(ctx context.Context, url, dir string) (string, error) {
	name, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	template := filepath.Join(dir, name+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--quiet",
		"-x",
		"--audio-format", d.format,
		"-o", template,
		"--", url,
	}

	log.Debug().Str("url", url).Str("dir", dir).Msg("Downloading video audio")
	out, err := d.run(ctx, d.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &models.ExtractionError{
			Kind: models.KindAudio,
			Err:  fmt.Errorf("%s: %w: %s", d.binary, err, strings.TrimSpace(string(out))),
		}
	}

	path := filepath.Join(dir, name+"."+d.format)
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", &models.ExtractionError{
			Kind: models.KindAudio,
			Err:  fmt.Errorf("%s produced no audio for %s", d.binary, url),
		}
	}
	return path, nil
}
