package services

import (
	"testing"
	"time"
)

func TestBuildObjectPath(t *testing.T) {
	tests := []struct {
		name     string
		tenant   string
		at       time.Time
		code     string
		category string
		file     string
		expected string
	}{
		{"source", "acme", day(2024, time.March, 5, 10), "TCH-030524", "Source", "RQ-1-TCH-030524-a.docx", "/acme/2024/March/TCH-030524/Source/RQ-1-TCH-030524-a.docx"},
		{"strips directories", "acme", day(2023, time.December, 31, 0), "TCH-123123-B", "Target", "../../etc/passwd", "/acme/2023/December/TCH-123123-B/Target/passwd"},
		{"windows path", "globex", day(2024, time.July, 1, 0), "TCH-070124", "Glossary", `C:\docs\terms.xlsx`, "/globex/2024/July/TCH-070124/Glossary/terms.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildObjectPath(tt.tenant, tt.at, tt.code, tt.category, tt.file); got != tt.expected {
				t.Errorf("BuildObjectPath() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestSourceFileName(t *testing.T) {
	if got := SourceFileName("RQ-9", "TCH-030524", "contract.pdf"); got != "RQ-9-TCH-030524-contract.pdf" {
		t.Errorf("SourceFileName() = %q", got)
	}
	if got := SourceFileName("", "TCH-030524", "a.pdf"); got != "-TCH-030524-a.pdf" {
		t.Errorf("SourceFileName() without request number = %q", got)
	}
}

func TestLogoObjectPath(t *testing.T) {
	if got := LogoObjectPath("sub/acme.png"); got != "/ClientLogos/acme.png" {
		t.Errorf("LogoObjectPath() = %q", got)
	}
	if got := objectName(LogoObjectPath("acme.png")); got != "ClientLogos/acme.png" {
		t.Errorf("objectName() = %q", got)
	}
}
