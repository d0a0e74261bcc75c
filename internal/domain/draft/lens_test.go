package draft

import (
	"errors"
	"reflect"
	"testing"
)

func TestSet_TypedField(t *testing.T) {
	s := NewStore()
	if err := Set(s, PatientID, "p-42"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := PatientID.Get(s.Document()); got != "p-42" {
		t.Errorf("expected p-42, got %q", got)
	}
	if PatientID.Path.String() != "patient.id" {
		t.Errorf("unexpected path %s", PatientID.Path)
	}
}

func TestSet_WholeAddressKeepsCountry(t *testing.T) {
	s := NewStore()
	if err := Set(s, PatientAddress, Address{Line1: "12 MG Road", Pin: "560001"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	a := s.Document().Patient.Address
	if a.Line1 != "12 MG Road" || a.Country != "India" {
		t.Errorf("unexpected address: %+v", a)
	}
}

func TestAppendEditRemove_TypedList(t *testing.T) {
	s := NewStore()
	if err := Append(s, Medications, Medication{SNo: 2, GenericName: "Ibuprofen"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := Edit(s, Medications, 0, func(m *Medication) { m.GenericName = "Paracetamol" }); err != nil {
		t.Fatalf("edit: %v", err)
	}
	names := []string{}
	for _, m := range Medications.Get(s.Document()) {
		names = append(names, m.GenericName)
	}
	if !reflect.DeepEqual(names, []string{"Paracetamol", "Ibuprofen"}) {
		t.Errorf("unexpected medications: %v", names)
	}

	if err := Remove(s, Medications, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := Remove(s, Medications, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	meds := Medications.Get(s.Document())
	if len(meds) != 1 || meds[0].GenericName != "Ibuprofen" {
		t.Errorf("last medication should survive, got %+v", meds)
	}
}

func TestEdit_PadsList(t *testing.T) {
	s := NewStore()
	if err := Edit(s, Doctors, 2, func(d *Doctor) { d.Name = "Dr. Sen" }); err != nil {
		t.Fatalf("edit: %v", err)
	}
	docs := Doctors.Get(s.Document())
	if len(docs) != 3 || docs[2].Name != "Dr. Sen" {
		t.Errorf("unexpected doctors: %+v", docs)
	}
	if err := Edit(s, Doctors, -1, func(*Doctor) {}); err == nil {
		t.Error("expected error for negative index")
	}
	if err := Edit(s, Doctors, 1_000_000, func(*Doctor) {}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for a far index, got %v", err)
	}
	if n := len(Doctors.Get(s.Document())); n != 3 {
		t.Errorf("rejected edit changed the list to %d doctors", n)
	}
}

func TestList_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	if err := Append(s, Investigations, "CBC"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got := Investigations.Get(s.Document())
	got[0] = "changed"
	if Investigations.Get(s.Document())[0] != "CBC" {
		t.Error("list copy aliases the store")
	}
}
