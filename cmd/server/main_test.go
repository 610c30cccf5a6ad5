package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
)

func TestBootLogger(t *testing.T) {
	var buf bytes.Buffer
	boot := bootLogger(&buf)
	boot.Error().Err(errors.New("JWT_SECRET is required")).Msg("load configuration")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["phase"] != "boot" || entry["message"] != "load configuration" || entry["error"] != "JWT_SECRET is required" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Errorf("expected a timestamp, got %v", entry)
	}
}

func TestCloseDB_LogsFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectClose().WillReturnError(errors.New("connection reset"))

	var buf bytes.Buffer
	closeDB(db, zerolog.New(&buf))

	if !strings.Contains(buf.String(), `"message":"postgres close"`) || !strings.Contains(buf.String(), "connection reset") {
		t.Errorf("expected close failure to be logged, got %q", buf.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
