//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package logging

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestStageTagsEvents(t *testing.T) {
	var buf strings.Builder
	orig := Logger
	Logger = zerolog.New(&buf)
	defer func() { Logger = orig }()

	stage := Stage("facts")
	stage.Info().Msg("Facts rebuilt")

	out := buf.String()
	if !strings.Contains(out, `"stage":"facts"`) {
		t.Errorf("stage field missing from output: %s", out)
	}
	if !strings.Contains(out, "Facts rebuilt") {
		t.Errorf("message missing from output: %s", out)
	}
}

func TestInitParsesLevel(t *testing.T) {
	Init(Config{Level: "warn", Pretty: false})
	if Logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level: got %v, want warn", Logger.GetLevel())
	}

	// Unknown levels fall back to info rather than failing.
	Init(Config{Level: "nonsense", Pretty: false})
	if Logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("fallback level: got %v, want info", Logger.GetLevel())
	}

	Init(DefaultConfig())
}
