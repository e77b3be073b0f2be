package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/credflow/credflow-backend/internal/review/domain"
)

// submission is one remembered upload
type submission struct {
	filename string
	digest   string
	at       time.Time
}

// DuplicateDetector is the third intake gate. A file with the same name
// and the same content digest inside the window is a true duplicate;
// the same name arriving later than the window is treated as a
// resubmission, since the user likely made changes in between.
type DuplicateDetector struct {
	mu      sync.Mutex
	window  time.Duration
	history []submission
}

// NewDuplicateDetector creates a detector with the given time window
func NewDuplicateDetector(window time.Duration) *DuplicateDetector {
	return &DuplicateDetector{window: window}
}

// Check reports whether this submission duplicates a recent one
func (d *DuplicateDetector) Check(filename, digest string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Most recent first
	for i := len(d.history) - 1; i >= 0; i-- {
		prev := d.history[i]
		if prev.filename != filename || prev.digest != digest {
			continue
		}
		age := now.Sub(prev.at)
		if age <= d.window {
			return &GateError{
				Gate: GateDuplicate,
				Reason: fmt.Sprintf("%s was already submitted %.1f minutes ago, within the %.0f-minute window",
					filename, age.Minutes(), d.window.Minutes()),
			}
		}
		// Outside the window: resubmission, process normally
		return nil
	}
	return nil
}

// Record remembers a submission that passed the gates and prunes entries
// older than twice the window
func (d *DuplicateDetector) Record(filename, digest string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := now.Add(-2 * d.window)
	kept := d.history[:0]
	for _, s := range d.history {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	d.history = append(kept, submission{filename: filename, digest: digest, at: now})
}

// Digest fingerprints a document's resolved text content
func Digest(pages []domain.Page) string {
	h := sha256.New()
	for _, page := range pages {
		h.Write([]byte(page.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
