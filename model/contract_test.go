package model

import "testing"

func TestContractRecordStruct(t *testing.T) {
	rec := &ContractRecord{
		ID:           "lease",
		FilePath:     "contracts/lease.txt",
		ContentHash:  "abc123",
		Status:       StatusActive,
		Version:      1,
		Jurisdiction: "EU",
	}

	if rec.ID != "lease" {
		t.Errorf("Expected ID 'lease', got '%s'", rec.ID)
	}
	if rec.Status != StatusActive {
		t.Errorf("Expected status '%s', got '%s'", StatusActive, rec.Status)
	}
}

func TestStatusConstants(t *testing.T) {
	if StatusActive != "Active" || StatusArchived != "Archived" {
		t.Errorf("Unexpected status constants: %s, %s", StatusActive, StatusArchived)
	}

	regStatuses := []string{RegStatusOK, RegStatusMonitor, RegStatusNeedsUpdate, RegStatusHighRisk}
	expected := []string{"OK", "Monitor", "Needs Update", "High Risk"}
	for i, status := range regStatuses {
		if status != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status)
		}
	}

	if ProposalSuggested != "suggested" || ProposalApplied != "applied" {
		t.Errorf("Unexpected proposal constants: %s, %s", ProposalSuggested, ProposalApplied)
	}
}

func TestRegulatoryRank(t *testing.T) {
	tests := []struct {
		status   string
		expected int
	}{
		{RegStatusHighRisk, 3},
		{RegStatusNeedsUpdate, 2},
		{RegStatusMonitor, 1},
		{RegStatusOK, 0},
		{"", -1},
		{"garbage", -1},
	}

	for _, tt := range tests {
		if got := RegulatoryRank(tt.status); got != tt.expected {
			t.Errorf("RegulatoryRank(%q) = %d, expected %d", tt.status, got, tt.expected)
		}
	}
}

func TestRegulatoryRankOrdering(t *testing.T) {
	// Severity must be strictly increasing through the status ladder
	ladder := []string{RegStatusOK, RegStatusMonitor, RegStatusNeedsUpdate, RegStatusHighRisk}
	for i := 1; i < len(ladder); i++ {
		if RegulatoryRank(ladder[i]) <= RegulatoryRank(ladder[i-1]) {
			t.Errorf("Expected %q to outrank %q", ladder[i], ladder[i-1])
		}
	}
}
