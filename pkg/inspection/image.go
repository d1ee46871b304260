package inspection

import (
	"fmt"
	"sync"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
)

// validateImage parses ref as a container image reference, catching a
// malformed Opts.Image (e.g. a typo) before a pod manifest is ever
// rendered from it, rather than letting the cluster reject the Pod later.
// It does not reach out to a registry: ParseReference is a pure syntax
// check, so validation never adds a network round trip to an inspection
// run.
// ValidateImage is validateImage's exported form, for callers (e.g. the
// CLI's `validate` command) that want to check an image reference before
// ever constructing a Runner.
func ValidateImage(ref string) error {
	return validateImage(ref)
}

func validateImage(ref string) error {
	if _, err := name.ParseReference(ref); err != nil {
		return ceerrors.New(ceerrors.Internal, "inspection", "validate_image",
			fmt.Errorf("probe image %q: %w", ref, err))
	}
	return nil
}

// imageChecked memoizes validateImage per Runner so repeated inspections
// against the same image don't re-parse it every call.
type imageChecked struct {
	once sync.Once
	err  error
}

func (r *Runner) checkImage() error {
	r.imageOnce.once.Do(func() {
		r.imageOnce.err = validateImage(r.Opts.Image)
	})
	return r.imageOnce.err
}
