package models

import "testing"

func TestTableNames(t *testing.T) {
	if got := (KYCSession{}).TableName(); got != "kyc_sessions" {
		t.Fatalf("unexpected KYCSession table name: %s", got)
	}
	if got := (UserVerification{}).TableName(); got != "user_verifications" {
		t.Fatalf("unexpected UserVerification table name: %s", got)
	}
	if got := (OperatorProfile{}).TableName(); got != "operator_profiles" {
		t.Fatalf("unexpected OperatorProfile table name: %s", got)
	}
}
