package prescription

import (
	"context"
	"fmt"
	"strings"

	"github.com/medsave/rxwizard/internal/domain/draft"
)

// AddHypersensitivity records a drug the patient reacts to and clears
// custom_drug. Blank and duplicate names leave the draft unchanged.
func (s *Service) AddHypersensitivity(ctx context.Context, id, drug string) (*Draft, error) {
	drug = strings.TrimSpace(drug)
	return s.update(ctx, id, func(st *draft.Store) error {
		h := draft.HypersensitivityRef.Get(st.Document())
		if drug == "" || contains(h.Drugs, drug) {
			return nil
		}
		h.Drugs = append(h.Drugs, drug)
		h.HasHypersensitivity = true
		h.CustomDrug = ""
		return draft.Set(st, draft.HypersensitivityRef, h)
	})
}

// ToggleExam flips the normal flag of one body system.
func (s *Service) ToggleExam(ctx context.Context, id, key string) (*Draft, error) {
	if !draft.IsExamKey(key) {
		return nil, fmt.Errorf("%w: unknown exam %q", ErrInvalidInput, key)
	}
	return s.update(ctx, id, func(st *draft.Store) error {
		exam := draft.PhysicalExam.Get(st.Document())
		f := exam[key]
		f.Normal = !f.Normal
		exam[key] = f
		return draft.Set(st, draft.PhysicalExam, exam)
	})
}

func (s *Service) AddInvestigation(ctx context.Context, id, name string) (*Draft, error) {
	return s.addUnique(ctx, id, draft.Investigations, name)
}

func (s *Service) AddDiagnosis(ctx context.Context, id, name string) (*Draft, error) {
	return s.addUnique(ctx, id, draft.Diagnoses, name)
}

func (s *Service) addUnique(ctx context.Context, id string, l draft.List[string], value string) (*Draft, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty %s", ErrInvalidInput, l.Path.Field)
	}
	return s.update(ctx, id, func(st *draft.Store) error {
		if contains(l.Get(st.Document()), value) {
			return nil
		}
		return draft.Append(st, l, value)
	})
}

// AddComplaint appends a chief complaint. The text is stored as given so
// the row can be edited later through a mutation.
func (s *Service) AddComplaint(ctx context.Context, id, text string) (*Draft, error) {
	return s.update(ctx, id, func(st *draft.Store) error {
		return draft.Append(st, draft.Complaints, text)
	})
}

func (s *Service) RemoveComplaint(ctx context.Context, id string, index int) (*Draft, error) {
	return s.update(ctx, id, func(st *draft.Store) error {
		return draft.Remove(st, draft.Complaints, index)
	})
}

// AddMedication appends a row numbered after the existing ones.
func (s *Service) AddMedication(ctx context.Context, id string, m draft.Medication) (*Draft, error) {
	return s.update(ctx, id, func(st *draft.Store) error {
		rows := draft.Medications.Get(st.Document())
		m.SNo = len(rows) + 1
		return draft.Append(st, draft.Medications, m)
	})
}

// RemoveMedication drops a row and renumbers the rest. The last row
// stays.
func (s *Service) RemoveMedication(ctx context.Context, id string, index int) (*Draft, error) {
	return s.update(ctx, id, func(st *draft.Store) error {
		if err := draft.Remove(st, draft.Medications, index); err != nil {
			return err
		}
		return st.Update(func(d *draft.Document) error {
			for i := range d.Treatment.Medications {
				d.Treatment.Medications[i].SNo = i + 1
			}
			return nil
		})
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
