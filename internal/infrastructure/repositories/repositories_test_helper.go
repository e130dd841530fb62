package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createUserTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		first_name TEXT,
		middle_name TEXT,
		last_name TEXT,
		photo BLOB,
		role TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE operator_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		profile_status TEXT NOT NULL,
		verification_method TEXT NOT NULL,
		kyc_status TEXT NOT NULL,
		kyc_fail_reason TEXT,
		kyc_verified_at DATETIME,
		dob TEXT,
		gender TEXT,
		current_address TEXT,
		state TEXT,
		district TEXT,
		photo BLOB,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createKYCTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE kyc_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		dedupe_hash TEXT NOT NULL,
		vendor_client_id TEXT,
		otp_attempts INTEGER NOT NULL DEFAULT 0,
		liveness_attempts INTEGER NOT NULL DEFAULT 0,
		face_attempts INTEGER NOT NULL DEFAULT 0,
		full_name TEXT,
		dob TEXT,
		gender TEXT,
		ekyc_address_data TEXT,
		name_match BOOLEAN,
		name_match_score REAL,
		dob_match BOOLEAN,
		gender_match BOOLEAN,
		id_photo BLOB,
		vendor_reference_id TEXT,
		vendor_uniqueness_id TEXT,
		otp_sent_at DATETIME,
		expires_at DATETIME NOT NULL,
		cleared_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE user_verifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		method TEXT NOT NULL,
		dedupe_hash TEXT,
		verified BOOLEAN NOT NULL DEFAULT 0,
		verified_at DATETIME,
		name_match BOOLEAN,
		name_match_score REAL,
		dob_match BOOLEAN,
		gender_match BOOLEAN,
		liveness_pass BOOLEAN,
		liveness_confidence REAL,
		face_match_pass BOOLEAN,
		face_match_confidence REAL,
		vendor_reference_id TEXT,
		vendor_uniqueness_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (user_id, method)
	);`)
	require.NoError(t, EnsureIndexes(db), "ensure indexes")
}

func createDutyTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE center_masters (
		id TEXT PRIMARY KEY,
		latitude REAL,
		longitude REAL,
		geofence_radius_meters INTEGER
	);`)
	mustExec(t, db, `CREATE TABLE exam_centers (
		id TEXT PRIMARY KEY,
		master_center_id TEXT,
		latitude REAL,
		longitude REAL,
		geofence_radius_meters INTEGER
	);`)
	mustExec(t, db, `CREATE TABLE exams (
		id TEXT PRIMARY KEY,
		geofencing_enabled BOOLEAN NOT NULL DEFAULT 1,
		selfie_required BOOLEAN NOT NULL DEFAULT 0
	);`)
	mustExec(t, db, `CREATE TABLE shifts (
		id TEXT PRIMARY KEY,
		exam_id TEXT NOT NULL,
		work_date TEXT,
		start_time TEXT,
		end_time TEXT
	);`)
	mustExec(t, db, `CREATE TABLE shift_centers (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		exam_center_id TEXT
	);`)
	mustExec(t, db, `CREATE TABLE operator_assignments (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		shift_center_id TEXT NOT NULL,
		status TEXT NOT NULL,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE attendance_logs (
		id TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		latitude REAL,
		longitude REAL,
		distance_from_center INTEGER,
		is_verified BOOLEAN NOT NULL DEFAULT 0,
		selfie_ref TEXT,
		created_at DATETIME
	);`)
}
