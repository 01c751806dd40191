package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"storyloom/pkg/project"
)

// Episode is one detected unit of the manuscript.
type Episode struct {
	Number int
	Title  string
	Body   string
}

// Act is one detected act heading with its episode range.
type Act struct {
	Number int
	Title  string
	From   int
	To     int
}

// Episode markers seen in manuscripts, in detection order. The first pattern
// that matches at least one episode wins for the whole document; patterns are
// never mixed within one split.
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^__제(\d+)화[.:]?\s*(.*?)__\s*$`),
	regexp.MustCompile(`(?m)^##\s*제(\d+)화[.:]?\s*(.*)$`),
	regexp.MustCompile(`(?m)^##\s*(\d+)화\s*(.*)$`),
	regexp.MustCompile(`(?m)^##\s*Episode\s+(\d+)[.:]?\s*(.*)$`),
}

// Act headings are bold-underscored with an episode range in parentheses,
// e.g. "__제1막. 봄 (1~10화)__".
var actPattern = regexp.MustCompile(`(?m)^__제?(\d+)막[.:]?\s*([^(（_]*?)\s*[(（]\s*제?(\d+)\s*[~〜-]\s*제?(\d+)\s*화?\s*[)）]\s*__\s*$`)

// SplitEpisodes cuts a monolithic Markdown manuscript into one file per
// episode under <projectName>_episodes/<ActN_slug>/EP<NN>_<slug>.md, grouped
// by detected act boundaries. Returns the output directory and episode count.
func SplitEpisodes(manuscriptPath, projectName string) (string, int, error) {
	raw, err := os.ReadFile(manuscriptPath)
	if err != nil {
		return "", 0, fmt.Errorf("read manuscript: %w", err)
	}
	text := string(raw)

	episodes := detectEpisodes(text)
	if len(episodes) == 0 {
		return "", 0, fmt.Errorf("no episode markers found in %s", filepath.Base(manuscriptPath))
	}
	acts := detectActs(text)

	outDir := filepath.Join(filepath.Dir(manuscriptPath), projectName+"_episodes")
	for _, ep := range episodes {
		actFolder := actFolderFor(acts, ep.Number)
		dir := filepath.Join(outDir, actFolder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", 0, err
		}
		if err := os.WriteFile(filepath.Join(dir, episodeFilename(ep)), []byte(ep.Body), 0o644); err != nil {
			return "", 0, err
		}
	}

	log.Info("split manuscript", "episodes", len(episodes), "acts", len(acts), "dir", outDir)
	return outDir, len(episodes), nil
}

// detectEpisodes tries each marker pattern in order and splits with the first
// one that matches anything.
func detectEpisodes(text string) []Episode {
	for _, pattern := range episodePatterns {
		matches := pattern.FindAllStringSubmatchIndex(text, -1)
		if len(matches) == 0 {
			continue
		}

		episodes := make([]Episode, 0, len(matches))
		for i, m := range matches {
			number, _ := strconv.Atoi(text[m[2]:m[3]])
			title := ""
			if m[4] >= 0 {
				title = strings.TrimSpace(text[m[4]:m[5]])
			}
			end := len(text)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}
			body := strings.TrimSpace(text[m[0]:end])
			episodes = append(episodes, Episode{Number: number, Title: title, Body: body})
		}
		return episodes
	}
	return nil
}

func detectActs(text string) []Act {
	var acts []Act
	for _, m := range actPattern.FindAllStringSubmatch(text, -1) {
		number, _ := strconv.Atoi(m[1])
		from, _ := strconv.Atoi(m[3])
		to, _ := strconv.Atoi(m[4])
		acts = append(acts, Act{
			Number: number,
			Title:  strings.TrimSpace(m[2]),
			From:   from,
			To:     to,
		})
	}
	return acts
}

func actFolderFor(acts []Act, episode int) string {
	for _, act := range acts {
		if episode >= act.From && episode <= act.To {
			if act.Title == "" {
				return fmt.Sprintf("Act%d", act.Number)
			}
			return fmt.Sprintf("Act%d_%s", act.Number, project.Slug(act.Title))
		}
	}
	return "Act1"
}

func episodeFilename(ep Episode) string {
	if ep.Title == "" {
		return fmt.Sprintf("EP%02d.md", ep.Number)
	}
	return fmt.Sprintf("EP%02d_%s.md", ep.Number, project.Slug(ep.Title))
}
