package task

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fyrsmithlabs/devbot/internal/fsops"
)

// ReportGenerator renders the fixed-schema implementation report.
// Produced at most once per task, only after the finalize sequence ran.
type ReportGenerator struct {
	fs      fsops.FileSystem
	dir     string
	project string
	now     func() time.Time
}

// NewReportGenerator writes reports under dir through fs. project names
// the repository in the front matter.
func NewReportGenerator(fileSystem fsops.FileSystem, dir, project string) *ReportGenerator {
	return &ReportGenerator{
		fs:      fileSystem,
		dir:     dir,
		project: project,
		now:     time.Now,
	}
}

// Generate renders the report for task from the tracker snapshot and
// writes it to a deterministically named path, which it returns. Counts
// in the document equal the tracker's set cardinalities at call time.
func (g *ReportGenerator) Generate(t *Task, tracker *MutationTracker) (string, error) {
	now := g.now()
	reportPath := path.Join(g.dir, fmt.Sprintf("%s__IMPLEMENTATION_REPORT__%s.md", now.Format("060102"), t.Slug))

	content := g.render(t, tracker, reportPath, now)
	if err := g.fs.Write(reportPath, content); err != nil {
		return "", fmt.Errorf("writing report %s: %w", reportPath, err)
	}
	return reportPath, nil
}

func (g *ReportGenerator) render(t *Task, tracker *MutationTracker, reportPath string, now time.Time) string {
	timestamp := now.Format("2006-01-02 15:04")

	return fmt.Sprintf(`---
filename: %q
title: "Report: %s"
createdAt: %s
updatedAt: %s
plan_file: %q
project: %q
status: completed
files_created: %d
files_modified: %d
files_deleted: 0
tags: [report, automated]
documentType: IMPLEMENTATION_REPORT
---

# Summary
The AI Agent successfully executed the plan `+"`%s`"+`. All steps marked in the plan were processed, and a Pull Request has been generated.

# Files Changed
## Created
%s

## Modified
%s

# Key Changes
- Automated implementation of logic defined in the plan.
- Integration with Git for version control.

# Technical Decisions
- Used direct file manipulation for speed.
- Maintained existing project structure.

# Testing Notes
- Check the generated PR for CI/CD results.
- Manual verification of the created files is recommended.
`,
		reportPath,
		t.Slug,
		timestamp,
		timestamp,
		t.PlanPath,
		g.project,
		tracker.CreatedCount(),
		tracker.ModifiedCount(),
		t.PlanPath,
		bulletList(tracker.Created()),
		bulletList(tracker.Modified()),
	)
}

// bulletList renders paths as markdown bullets, or "None" when empty.
func bulletList(paths []string) string {
	if len(paths) == 0 {
		return "None"
	}
	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(p)
	}
	return b.String()
}
