package loadgen

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"

	"github.com/wrussell84/stampede/internal/collector"
	"github.com/wrussell84/stampede/internal/payload"
	"github.com/wrussell84/stampede/internal/registry"
	"github.com/wrussell84/stampede/internal/task"
	"github.com/wrussell84/stampede/internal/transport"
)

// Aggregation labels group outcomes across instances of the same
// parameterized request. They are templates, never concrete paths.
const (
	LabelCreate        = "/products/[id]/details"
	LabelRead          = "/products/[id]"
	LabelReadMissing   = "/products/[id] (404)"
	LabelCreateInvalid = "/products/[id]/details (400)"
)

// Task weights, relative selection frequencies for the product mix.
// Reads dominate, matching real-world read-heavy traffic.
const (
	weightCreate        = 1
	weightRead          = 5
	weightReadMissing   = 1
	weightCreateInvalid = 1
)

// invalidIDSpan bounds the arbitrary small identifier used by the
// invalid-create task.
const invalidIDSpan = 100

// Classifier maps an application status code to a success verdict.
// Negative-path tasks deliberately invert the usual meaning: a 404 or
// 400 can be the expected, successful outcome.
type Classifier func(status int) bool

// Expect2xx classifies any 2xx status as success.
func Expect2xx(status int) bool {
	return status >= 200 && status < 300
}

// ExpectStatus classifies exactly the given status as success.
func ExpectStatus(want int) Classifier {
	return func(status int) bool { return status == want }
}

// ProductTasks bundles the collaborators the product task set shares
// across all virtual users.
type ProductTasks struct {
	Registry  *registry.Registry
	Transport transport.Transport
	Collector collector.Collector
	Log       *slog.Logger
}

// Catalog builds the task catalog for one virtual user. rng must be the
// same source the user runs with, so every user gets its own catalog.
func (p *ProductTasks) Catalog(rng *rand.Rand) (*task.Catalog, error) {
	c := task.NewCatalog()

	if err := c.Register("create", weightCreate, func(ctx context.Context) error {
		return p.create(ctx, rng)
	}); err != nil {
		return nil, err
	}
	if err := c.Register("read-existing", weightRead, func(ctx context.Context) error {
		return p.readExisting(ctx, rng)
	}); err != nil {
		return nil, err
	}
	if err := c.Register("read-missing", weightReadMissing, func(ctx context.Context) error {
		return p.readMissing(ctx, rng)
	}); err != nil {
		return nil, err
	}
	if err := c.Register("create-invalid", weightCreateInvalid, func(ctx context.Context) error {
		return p.createInvalid(ctx, rng)
	}); err != nil {
		return nil, err
	}

	return c, nil
}

// create allocates a fresh identifier and posts a valid product for it.
func (p *ProductTasks) create(ctx context.Context, rng *rand.Rand) error {
	id := p.Registry.AllocateNext()

	body, err := payload.Valid(rng, id)
	if err != nil {
		p.Collector.Record(collector.Sample{Label: LabelCreate, OK: false})
		return fmt.Errorf("build create payload: %w", err)
	}

	return p.exchange(ctx, http.MethodPost, fmt.Sprintf("/products/%d/details", id), LabelCreate, body, Expect2xx)
}

// readExisting fetches a random created product. Before anything has
// been created it performs a create instead, once, and does not also
// read in the same cycle.
func (p *ProductTasks) readExisting(ctx context.Context, rng *rand.Rand) error {
	id, ok := p.Registry.PickExisting(rng)
	if !ok {
		return p.create(ctx, rng)
	}

	return p.exchange(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), LabelRead, nil, Expect2xx)
}

// readMissing fetches an identifier that was never allocated; the
// expected outcome is a 404.
func (p *ProductTasks) readMissing(ctx context.Context, rng *rand.Rand) error {
	id := p.Registry.PickMissing(rng)

	return p.exchange(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), LabelReadMissing, nil, ExpectStatus(http.StatusNotFound))
}

// createInvalid posts a payload missing its required fields; the
// expected outcome is a validation rejection (400).
func (p *ProductTasks) createInvalid(ctx context.Context, rng *rand.Rand) error {
	id := 1 + rng.Int63n(invalidIDSpan)

	body, err := payload.Invalid(id)
	if err != nil {
		p.Collector.Record(collector.Sample{Label: LabelCreateInvalid, OK: false})
		return fmt.Errorf("build invalid payload: %w", err)
	}

	return p.exchange(ctx, http.MethodPost, fmt.Sprintf("/products/%d/details", id), LabelCreateInvalid, body, ExpectStatus(http.StatusBadRequest))
}

// exchange runs one transport call and records exactly one outcome.
// Transport-level failures are always classified as failures, whatever
// the task's own rule says.
func (p *ProductTasks) exchange(ctx context.Context, method, path, label string, body []byte, classify Classifier) error {
	resp, err := p.Transport.Execute(ctx, method, path, body)
	if err != nil {
		if p.Log != nil {
			p.Log.Warn("transport error", "method", method, "label", label, "error", err)
		}
		p.Collector.Record(collector.Sample{Label: label, OK: false})
		return fmt.Errorf("%s %s: %w", method, label, err)
	}

	p.Collector.Record(collector.Sample{
		Label:   label,
		Elapsed: resp.Elapsed,
		OK:      classify(resp.StatusCode),
	})
	return nil
}
