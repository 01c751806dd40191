package ingest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const convertTimeout = 120 * time.Second

// Convert turns a Word document into Markdown next to it (or at outPath when
// given) and returns (ok, message, outPath). Only .docx input is accepted.
// The conversion runs through pandoc out of process; a missing binary is an
// ordinary failure, not a crash.
func Convert(docxPath, outPath string) (bool, string, string) {
	if !strings.HasSuffix(strings.ToLower(docxPath), ".docx") {
		return false, "docx 파일만 변환할 수 있습니다", ""
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(docxPath, ".docx") + ".md"
	}

	pandoc, err := exec.LookPath("pandoc")
	if err != nil {
		return false, "pandoc이 설치되어 있지 않습니다 (brew install pandoc)", ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), convertTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, pandoc, "-f", "docx", "-t", "gfm", "--wrap=none", "-o", outPath, docxPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Warn("docx conversion failed", "input", docxPath, "error", err, "output", string(out))
		return false, fmt.Sprintf("변환 실패: %v", err), ""
	}

	log.Info("converted manuscript", "input", docxPath, "output", outPath)
	return true, "변환 완료", outPath
}
