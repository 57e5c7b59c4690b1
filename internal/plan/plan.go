// Package plan loads the study plan: the sessions a host offers timers for.
package plan

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
)

// Load reads one session per line from path. Fields are tab separated:
// id, optional title, optional planned minutes. Blank lines and lines starting
// with '#' are skipped. Sessions without planned minutes get defaultMinutes.
func Load(path string, defaultMinutes int) ([]model.PlanSession, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only plan file.
			_ = cerr
		}
	}()

	var sessions []model.PlanSession
	seen := map[string]bool{}
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		session, err := parseLine(line, defaultMinutes)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if seen[session.ID] {
			return nil, fmt.Errorf("%s:%d: duplicate session id %q", path, lineNo, session.ID)
		}
		seen[session.ID] = true
		sessions = append(sessions, session)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("study plan is empty: %s", path)
	}
	return sessions, nil
}

// FromIDs builds plan sessions for bare identifiers given on the command line.
func FromIDs(ids []string, defaultMinutes int) []model.PlanSession {
	sessions := make([]model.PlanSession, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sessions = append(sessions, model.PlanSession{ID: id, PlannedMinutes: defaultMinutes})
	}
	return sessions
}

func parseLine(line string, defaultMinutes int) (model.PlanSession, error) {
	fields := strings.Split(line, "\t")
	session := model.PlanSession{
		ID:             strings.TrimSpace(fields[0]),
		PlannedMinutes: defaultMinutes,
	}
	if session.ID == "" {
		return model.PlanSession{}, fmt.Errorf("missing session id")
	}
	if len(fields) > 1 {
		session.Title = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
		minutes, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil || minutes <= 0 {
			return model.PlanSession{}, fmt.Errorf("invalid planned minutes %q", fields[2])
		}
		session.PlannedMinutes = minutes
	}
	return session, nil
}
