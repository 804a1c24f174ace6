package producer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"resty.dev/v3"

	"github.com/flowforge/dagmanager/pkg/core"
)

// HTTPSpecProducer submits job specs to a remote executor's REST
// endpoint. It is the default SpecProducer implementation.
type HTTPSpecProducer struct {
	client *resty.Client
}

// New creates an HTTPSpecProducer using a fresh resty client.
func New() *HTTPSpecProducer {
	return &HTTPSpecProducer{client: resty.New()}
}

// NewWithClient wraps an existing, pre-configured resty client (auth,
// timeouts, retries already set up by the caller).
func NewWithClient(client *resty.Client) *HTTPSpecProducer {
	return &HTTPSpecProducer{client: client}
}

// AddSpec posts spec to spec.ExecutorURI and returns immediately with an
// unresolved future; the HTTP round trip runs in its own goroutine so a
// slow executor stalls only the caller who chooses to Wait on it.
func (p *HTTPSpecProducer) AddSpec(ctx context.Context, spec core.JobSpec) (core.SubmissionFuture, error) {
	if spec.ExecutorURI == "" {
		return nil, fmt.Errorf("dagmanager: job %q has no executor URI", spec.Name)
	}

	f := NewFuture()
	correlationID := uuid.NewString()
	go func() {
		resp, err := p.client.R().
			SetContext(ctx).
			SetHeader("X-Correlation-Id", correlationID).
			SetBody(map[string]any{
				"name":       spec.Name,
				"properties": spec.Properties,
				"flow_info":  spec.FlowInfo,
			}).
			Post(spec.ExecutorURI + "/jobs")
		if err != nil {
			f.Resolve("", fmt.Errorf("submit %q: %w", spec.Name, err))
			return
		}
		if resp.IsError() {
			f.Resolve("", fmt.Errorf("submit %q: executor returned %s", spec.Name, resp.Status()))
			return
		}
		f.Resolve(spec.ExecutorURI+"/jobs/"+spec.Name, nil)
	}()
	return f, nil
}

// CancelJob issues a best-effort cancel against the executor.
func (p *HTTPSpecProducer) CancelJob(ctx context.Context, executorURI string, props map[string]string) error {
	if executorURI == "" {
		return fmt.Errorf("dagmanager: cancel requested with no executor URI")
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-Correlation-Id", uuid.NewString()).
		SetBody(props).
		Delete(executorURI + "/jobs")
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cancel: executor returned %s", resp.Status())
	}
	return nil
}

// SerializeAddSpecResponse serializes the future's execution link so it
// can be handed back to CancelJob as part of props.
func (p *HTTPSpecProducer) SerializeAddSpecResponse(f core.SubmissionFuture) (string, error) {
	future, ok := f.(*Future)
	if !ok {
		return "", fmt.Errorf("dagmanager: unexpected future type %T", f)
	}
	return future.Link(), nil
}

// GetExecutionLink returns the executor-facing URL for a resolved future.
func (p *HTTPSpecProducer) GetExecutionLink(f core.SubmissionFuture, executorURI string) string {
	future, ok := f.(*Future)
	if !ok || !future.Done() {
		return executorURI
	}
	return future.Link()
}
