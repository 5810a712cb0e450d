package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/repository"
	"github.com/mediabunnygo/mediabunny/internal/service"
)

// buildWAV constructs a minimal 16-bit PCM mono WAV file for use as test input.
func buildWAV(t *testing.T, sampleRate uint32, samples int) []byte {
	t.Helper()
	var data bytes.Buffer
	for i := 0; i < samples; i++ {
		_ = binary.Write(&data, binary.LittleEndian, int16(i))
	}
	dataBytes := data.Bytes()

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(dataBytes)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * 1 * 2
	_ = binary.Write(&buf, binary.LittleEndian, byteRate)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(dataBytes)))
	buf.Write(dataBytes)

	return buf.Bytes()
}

func newTestJobHandler(t *testing.T) *JobHandler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&repository.Job{}))
	repo := repository.NewJobRepository(db)
	svc := service.NewJobService(repo, codecbackend.NewRegistry())
	return NewJobHandler(svc)
}

func TestCreateJobCopiesWAVToWAV(t *testing.T) {
	h := newTestJobHandler(t)
	dir := t.TempDir()

	inPath := filepath.Join(dir, "in.wav")
	require.NoError(t, os.WriteFile(inPath, buildWAV(t, 8000, 4096), 0o644))
	outPath := filepath.Join(dir, "out.wav")

	out, err := h.Create(context.Background(), &CreateJobInput{Body: struct {
		InputPath       string `json:"input_path" doc:"Path to a source WAV file"`
		OutputPath      string `json:"output_path" doc:"Path to write the converted output"`
		OutputContainer string `json:"output_container" doc:"mp4, mkv, wav, mp3, adts, or ogg"`
	}{InputPath: inPath, OutputPath: outPath, OutputContainer: "wav"}})
	require.NoError(t, err)
	require.NotEmpty(t, out.Body.ID)

	require.Eventually(t, func() bool {
		got, err := h.Get(context.Background(), &GetJobInput{ID: out.Body.ID})
		return err == nil && got.Body.Status == "completed"
	}, 2*time.Second, 10*time.Millisecond)

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestCreateJobRejectsUnknownContainer(t *testing.T) {
	h := newTestJobHandler(t)
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	require.NoError(t, os.WriteFile(inPath, buildWAV(t, 8000, 64), 0o644))

	_, err := h.Create(context.Background(), &CreateJobInput{Body: struct {
		InputPath       string `json:"input_path" doc:"Path to a source WAV file"`
		OutputPath      string `json:"output_path" doc:"Path to write the converted output"`
		OutputContainer string `json:"output_container" doc:"mp4, mkv, wav, mp3, adts, or ogg"`
	}{InputPath: inPath, OutputPath: filepath.Join(dir, "out.bin"), OutputContainer: "flv"}})
	require.Error(t, err)
}

func TestGetJobMissingReturnsNotFound(t *testing.T) {
	h := newTestJobHandler(t)
	_, err := h.Get(context.Background(), &GetJobInput{ID: "missing"})
	require.Error(t, err)
}

func TestCancelUnknownJobFails(t *testing.T) {
	h := newTestJobHandler(t)
	_, err := h.Cancel(context.Background(), &CancelJobInput{ID: "missing"})
	require.Error(t, err)
}
