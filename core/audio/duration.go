package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"auralis/logger"

	"github.com/bogem/id3v2/v2"
	"github.com/mewkiz/flac"
)

// ErrNoDuration 文件中没有可用的时长信息
var ErrNoDuration = errors.New("audio duration not available")

// Prober 读取音频文件时长（秒）
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Chain 依次尝试，返回第一个成功的结果
type Chain []Prober

func (c Chain) Duration(ctx context.Context, path string) (float64, error) {
	var errs []error
	for _, p := range c {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		d, err := p.Duration(ctx, path)
		if err == nil && d > 0 {
			return d, nil
		}
		if err == nil {
			err = ErrNoDuration
		}
		errs = append(errs, fmt.Errorf("%T: %w", p, err))
	}
	if len(errs) == 0 {
		return 0, ErrNoDuration
	}
	return 0, errors.Join(errs...)
}

// NewProber 默认顺序：FLAC 流信息、ID3 TLEN 帧、ffprobe
func NewProber(ffmpegPath string) Chain {
	return Chain{FLACProber{}, ID3Prober{}, NewFFProbe(ffmpegPath)}
}

// FLACProber 从 FLAC STREAMINFO 计算时长
type FLACProber struct{}

func (FLACProber) Duration(_ context.Context, path string) (float64, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 || info.NSamples == 0 {
		return 0, ErrNoDuration
	}
	return float64(info.NSamples) / float64(info.SampleRate), nil
}

// ID3Prober 读取 ID3v2 的 TLEN 帧（毫秒）
type ID3Prober struct{}

func (ID3Prober) Duration(_ context.Context, path string) (float64, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return 0, fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	text := strings.TrimSpace(tag.GetTextFrame("TLEN").Text)
	if text == "" {
		return 0, ErrNoDuration
	}
	ms, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse TLEN %q: %w", text, err)
	}
	return ms / 1000, nil
}

// FFProbe 调用 ffprobe 读取容器时长
type FFProbe struct {
	ffprobePath string
}

// NewFFProbe ffprobe 与 ffmpeg 位于同一目录
func NewFFProbe(ffmpegPath string) *FFProbe {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFProbe{ffprobePath: strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1)}
}

func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	d, err := parseFFProbe(out.Bytes())
	if err != nil {
		logger.Debug("ffprobe output", logger.String("path", path), logger.String("output", out.String()))
		return 0, err
	}
	return d, nil
}

// ffprobeOutput ffprobe 的 JSON 输出
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseFFProbe(data []byte) (float64, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" || probe.Format.Duration == "N/A" {
		return 0, ErrNoDuration
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
	}
	return d, nil
}
