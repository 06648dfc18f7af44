package shell

import (
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/realtivo/internal/models"
)

// clearValue entered at a prompt empties an optional field.
const clearValue = "-"

func (s *Shell) ask(label, current string) (string, error) {
	p := label + ": "
	if current != "" {
		p = fmt.Sprintf("%s [%s]: ", label, current)
	}
	v, err := s.in.ReadLine(p)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	switch v {
	case "":
		return current, nil
	case clearValue:
		return "", nil
	}
	return v, nil
}

// promptLead reads a lead form. With a non-nil current lead, empty answers
// keep the existing value.
func (s *Shell) promptLead(current *models.Lead) (models.LeadInput, error) {
	var in models.LeadInput
	if current != nil {
		in = current.Input()
	}
	var err error
	if in.Name, err = s.ask("Name", in.Name); err != nil {
		return in, err
	}
	if in.Email, err = s.ask("Email", in.Email); err != nil {
		return in, err
	}
	if in.Phone, err = s.ask("Phone", in.Phone); err != nil {
		return in, err
	}
	if in.Content, err = s.ask("Content", in.Content); err != nil {
		return in, err
	}

	defStatus := string(in.Status)
	if defStatus == "" {
		defStatus = string(models.DefaultStatus)
	}
	raw, err := s.ask("Status (Hot/Warm/Cold/Closed)", defStatus)
	if err != nil {
		return in, err
	}
	if st, ok := models.ParseStatus(raw); ok {
		in.Status = st
	} else {
		in.Status = models.Status(raw)
	}

	if in.FollowUpDate, err = s.ask("Follow-up date (YYYY-MM-DD, '-' clears)", in.FollowUpDate); err != nil {
		return in, err
	}
	// Date-only input is sent as an ISO timestamp like the web form did.
	if t, ok := models.ParseFollowUp(in.FollowUpDate); ok {
		in.FollowUpDate = t.Format(time.RFC3339)
	}
	return in, nil
}

func (s *Shell) confirm(question string) bool {
	ans, err := s.in.ReadLine(question + " [y/N]: ")
	if err != nil {
		return false
	}
	ans = strings.ToLower(strings.TrimSpace(ans))
	return ans == "y" || ans == "yes"
}
