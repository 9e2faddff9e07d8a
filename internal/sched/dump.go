package sched

import (
	"fmt"
	"sort"

	"github.com/maruel/natural"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// List returns one label per task slot ("t<id> <mode> <status>"), sorted in
// natural order so t2 lists before t10.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tasks))
	for _, id := range s.order {
		t := s.tasks[id]
		out = append(out, fmt.Sprintf("t%d %s %s", t.ID, t.Mode, t.status))
	}
	sort.Sort(natural.StringSlice(out))
	return out
}

// DumpJSON serializes the task table as JSON for external tooling to poll.
// indent pretty-prints the output.
func (s *Scheduler) DumpJSON(indent bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := `{"tasks":[]}`
	for i, id := range s.order {
		t := s.tasks[id]
		var err error
		base := fmt.Sprintf("tasks.%d", i)
		if doc, err = sjson.Set(doc, base+".id", t.ID); err != nil {
			return nil, err
		}
		if doc, err = sjson.Set(doc, base+".mode", t.Mode.String()); err != nil {
			return nil, err
		}
		if doc, err = sjson.Set(doc, base+".status", t.status.String()); err != nil {
			return nil, err
		}
		if doc, err = sjson.Set(doc, base+".source", t.Source); err != nil {
			return nil, err
		}
		if t.status == StatusDone && t.err == nil {
			if doc, err = sjson.Set(doc, base+".result", t.result.String()); err != nil {
				return nil, err
			}
		}
		if t.err != nil {
			if doc, err = sjson.Set(doc, base+".error", t.err.Error()); err != nil {
				return nil, err
			}
		}
	}
	out := []byte(doc)
	if indent {
		out = pretty.Pretty(out)
	}
	return out, nil
}
