// Package abuse tracks crowd-cast abuse reports and the resulting blocklist.
// Pending reports persist as a YAML document mapping reported user id to the
// set of reporter ids; blocked ids persist separately as a JSON array.
package abuse

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
	"weathertogether.app/errors"
)

// Outcome describes the result of recording one abuse report
type Outcome int

const (
	// Recorded means the report was added and the target remains unblocked
	Recorded Outcome = iota
	// Duplicate means this reporter already reported this target
	Duplicate
	// Blocked means this report pushed the target over the threshold
	Blocked
	// AlreadyBlocked means the target was blocked before this report
	AlreadyBlocked
)

// Tracker persists abuse reports and the blocklist to disk
type Tracker struct {
	mu          sync.Mutex
	reportFile  string
	blockedFile string
	threshold   int
}

// NewTracker creates a tracker persisting to the given document paths
func NewTracker(reportFile, blockedFile string, threshold int) *Tracker {
	return &Tracker{
		reportFile:  reportFile,
		blockedFile: blockedFile,
		threshold:   threshold,
	}
}

// Report records one abuse report against a user. Reaching the threshold
// moves the target to the blocklist and purges its pending entry.
func (t *Tracker) Report(reportedID, reporterID int64) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	blocked, err := t.loadBlocked()
	if err != nil {
		return Recorded, err
	}
	for _, id := range blocked {
		if id == reportedID {
			return AlreadyBlocked, nil
		}
	}

	reports, err := t.loadReports()
	if err != nil {
		return Recorded, err
	}

	for _, id := range reports[reportedID] {
		if id == reporterID {
			log.Printf("[WARNING] duplicate report on %d by %d\n", reportedID, reporterID)
			return Duplicate, nil
		}
	}
	reports[reportedID] = append(reports[reportedID], reporterID)

	if len(reports[reportedID]) < t.threshold {
		if err := t.saveReports(reports); err != nil {
			return Recorded, err
		}
		return Recorded, nil
	}

	// Persist the purged report document before the blocklist, so a failed
	// blocklist write never leaves a blocked user with a live pending entry.
	delete(reports, reportedID)
	if err := t.saveReports(reports); err != nil {
		return Recorded, err
	}
	blocked = append(blocked, reportedID)
	if err := t.saveBlocked(blocked); err != nil {
		return Recorded, err
	}
	return Blocked, nil
}

// IsBlocked reports whether a user id is on the blocklist
func (t *Tracker) IsBlocked(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	blocked, err := t.loadBlocked()
	if err != nil {
		log.Printf("[ERROR] Failed to load blocklist: %v\n", err)
		return false
	}
	for _, id := range blocked {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Tracker) loadReports() (map[int64][]int64, error) {
	data, err := os.ReadFile(t.reportFile)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[int64][]int64), nil
		}
		return nil, errors.NewDatabaseError("failed to read report document", err)
	}

	reports := make(map[int64][]int64)
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, errors.NewDatabaseError("failed to parse report document", err)
	}
	if reports == nil {
		reports = make(map[int64][]int64)
	}
	return reports, nil
}

func (t *Tracker) saveReports(reports map[int64][]int64) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return errors.NewDatabaseError("failed to encode report document", err)
	}
	if err := os.WriteFile(t.reportFile, data, 0o644); err != nil {
		return errors.NewDatabaseError("failed to write report document", err)
	}
	return nil
}

func (t *Tracker) loadBlocked() ([]int64, error) {
	data, err := os.ReadFile(t.blockedFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("failed to read blocklist", err)
	}

	var blocked []int64
	if err := json.Unmarshal(data, &blocked); err != nil {
		return nil, errors.NewDatabaseError("failed to parse blocklist", err)
	}
	return blocked, nil
}

func (t *Tracker) saveBlocked(blocked []int64) error {
	data, err := json.Marshal(blocked)
	if err != nil {
		return errors.NewDatabaseError("failed to encode blocklist", err)
	}
	if err := os.WriteFile(t.blockedFile, data, 0o644); err != nil {
		return errors.NewDatabaseError("failed to write blocklist", err)
	}
	return nil
}
