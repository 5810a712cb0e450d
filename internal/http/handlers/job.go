package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/convert/core"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/mux/adts"
	"github.com/mediabunnygo/mediabunny/internal/mux/fmp4"
	"github.com/mediabunnygo/mediabunny/internal/mux/mkv"
	"github.com/mediabunnygo/mediabunny/internal/mux/mp3"
	"github.com/mediabunnygo/mediabunny/internal/mux/ogg"
	"github.com/mediabunnygo/mediabunny/internal/mux/wav"
	"github.com/mediabunnygo/mediabunny/internal/repository"
	"github.com/mediabunnygo/mediabunny/internal/service"
)

// JobHandler exposes the conversion job lifecycle over HTTP.
type JobHandler struct {
	jobs         *service.JobService
	maxInputSize int64 // 0 disables the check
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// WithMaxInputSize rejects jobs whose input file exceeds maxBytes before a
// controller is even built. A value of 0 disables the check.
func (h *JobHandler) WithMaxInputSize(maxBytes int64) *JobHandler {
	h.maxInputSize = maxBytes
	return h
}

// Register registers the job routes with the API.
func (h *JobHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "createJob",
		Method:      "POST",
		Path:        "/v1/jobs",
		Summary:     "Submit a conversion job",
		Tags:        []string{"Jobs"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "listJobs",
		Method:      "GET",
		Path:        "/v1/jobs",
		Summary:     "List jobs",
		Tags:        []string{"Jobs"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getJob",
		Method:      "GET",
		Path:        "/v1/jobs/{id}",
		Summary:     "Get job",
		Tags:        []string{"Jobs"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "cancelJob",
		Method:      "POST",
		Path:        "/v1/jobs/{id}/cancel",
		Summary:     "Cancel a running job",
		Tags:        []string{"Jobs"},
	}, h.Cancel)

	sse.Register(api, huma.Operation{
		OperationID: "streamJobEvents",
		Method:      "GET",
		Path:        "/v1/jobs/{id}/events",
		Summary:     "Stream job progress as server-sent events",
		Tags:        []string{"Jobs"},
	}, map[string]any{
		"progress": JobProgressEvent{},
	}, h.Events)
}

// CreateJobInput is the request body for submitting a conversion job.
type CreateJobInput struct {
	Body struct {
		InputPath       string `json:"input_path" doc:"Path to a source WAV file"`
		OutputPath      string `json:"output_path" doc:"Path to write the converted output"`
		OutputContainer string `json:"output_container" doc:"mp4, mkv, wav, mp3, adts, or ogg"`
	}
}

// CreateJobOutput wraps the created job's response representation.
type CreateJobOutput struct {
	Body JobResponse
}

// JobResponse is the job lifecycle state returned to API callers.
type JobResponse struct {
	ID         string  `json:"id"`
	InputPath  string  `json:"input_path"`
	OutputPath string  `json:"output_path"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// JobFromModel converts a persisted job record to its API representation.
func JobFromModel(j *repository.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		InputPath:  j.InputPath,
		OutputPath: j.OutputPath,
		Status:     string(j.Status),
		Progress:   j.Progress,
		ErrorKind:  j.ErrorKind,
		Error:      j.ErrorDetail,
	}
}

// Create opens the source and destination, negotiates a conversion plan,
// and starts the job in the background.
func (h *JobHandler) Create(ctx context.Context, input *CreateJobInput) (*CreateJobOutput, error) {
	container, ok := codec.ParseContainer(input.Body.OutputContainer)
	if !ok {
		return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("unsupported output container %q", input.Body.OutputContainer))
	}

	if h.maxInputSize > 0 {
		if info, err := os.Stat(input.Body.InputPath); err == nil && info.Size() > h.maxInputSize {
			return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("input file is %d bytes, exceeds the %d byte limit", info.Size(), h.maxInputSize))
		}
	}

	in, closeIn, err := openInput(input.Body.InputPath)
	if err != nil {
		return nil, huma.Error400BadRequest("opening input", err)
	}
	// The input stays open while the background job reads it.

	sink, outFile, err := openSink(container, input.Body.OutputPath)
	if err != nil {
		closeIn()
		return nil, huma.Error400BadRequest("opening output", err)
	}
	_ = outFile // kept open for the background job; the muxer closes it in Finalize/Abort, except wav, which leaves it open

	job, err := h.jobs.Submit(ctx, input.Body.InputPath, input.Body.OutputPath, in, sink, core.Options{OutputContainer: container})
	if err != nil {
		closeIn()
		return nil, mapCoreError(err)
	}

	return &CreateJobOutput{Body: JobFromModel(job)}, nil
}

// ListJobsInput has no parameters.
type ListJobsInput struct{}

// ListJobsOutput wraps the list of known jobs.
type ListJobsOutput struct {
	Body struct {
		Jobs []JobResponse `json:"jobs"`
	}
}

// List returns every known job, newest first.
func (h *JobHandler) List(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
	jobs, err := h.jobs.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing jobs", err)
	}
	resp := &ListJobsOutput{}
	resp.Body.Jobs = make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp.Body.Jobs = append(resp.Body.Jobs, JobFromModel(j))
	}
	return resp, nil
}

// GetJobInput identifies one job.
type GetJobInput struct {
	ID string `path:"id"`
}

// GetJobOutput wraps one job's state.
type GetJobOutput struct {
	Body JobResponse
}

// Get returns a single job by ID.
func (h *JobHandler) Get(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	job, err := h.jobs.GetByID(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("getting job", err)
	}
	if job == nil {
		return nil, huma.Error404NotFound("job not found")
	}
	return &GetJobOutput{Body: JobFromModel(job)}, nil
}

// CancelJobInput identifies the job to cancel.
type CancelJobInput struct {
	ID string `path:"id"`
}

// CancelJobOutput is empty; cancellation is fire-and-forget.
type CancelJobOutput struct{}

// Cancel requests cancellation of a running job.
func (h *JobHandler) Cancel(ctx context.Context, input *CancelJobInput) (*CancelJobOutput, error) {
	if err := h.jobs.Cancel(input.ID); err != nil {
		return nil, huma.Error409Conflict("job is not running", err)
	}
	return &CancelJobOutput{}, nil
}

// JobProgressEvent is one server-sent-event payload for a job's progress stream.
type JobProgressEvent struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

// JobEventsInput identifies the job whose progress to stream.
type JobEventsInput struct {
	ID string `path:"id"`
}

// Events streams progress updates until the job reaches a terminal state.
func (h *JobHandler) Events(ctx context.Context, input *JobEventsInput, send sse.Sender) {
	for {
		job, err := h.jobs.GetByID(ctx, input.ID)
		if err != nil || job == nil {
			return
		}
		_ = send.Data(JobProgressEvent{Status: string(job.Status), Progress: job.Progress})
		switch job.Status {
		case repository.JobStatusCompleted, repository.JobStatusFailed, repository.JobStatusCancelled:
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// mapCoreError maps a core.Error's Kind to the HTTP status this project's
// conversion errors surface as.
func mapCoreError(err error) error {
	switch core.KindOf(err) {
	case core.KindIncompatibleRequest, core.KindUnsupportedCodec, core.KindNoOutputTracks:
		return huma.Error422UnprocessableEntity("conversion request rejected", err)
	case core.KindCancelled:
		return huma.NewError(499, "conversion cancelled", err)
	default:
		return huma.Error500InternalServerError("conversion failed", err)
	}
}

func openInput(path string) (demux.Input, func(), error) {
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

func openSink(container codec.Container, path string) (mux.Adapter, *os.File, error) {
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
