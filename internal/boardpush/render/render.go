package render

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Substitution markers understood by board templates.
const (
	MarkerBoardData  = "<!--BOARD_DATA-->"
	MarkerBoardID    = "<!--BOARD_ID-->"
	MarkerUpdateTime = "<!--LAST_UPDATE_TIME-->"
)

// Renderer turns board content into the document pushed on-chain. The
// template is re-read on every render so edits take effect on the next cycle
// without a restart.
type Renderer struct {
	templatePath string
}

func New(templatePath string) *Renderer {
	return &Renderer{templatePath: templatePath}
}

// Render substitutes the three markers into the template. Replacement is
// literal and each marker is replaced at most once; markers missing from the
// template are simply left out of the result.
func (r *Renderer) Render(lines []string, boardID int, timestamp string) (string, error) {
	tpl, err := os.ReadFile(r.templatePath)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}

	if lines == nil {
		lines = []string{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode board data: %w", err)
	}

	out := string(tpl)
	out = strings.Replace(out, MarkerBoardData, string(data), 1)
	out = strings.Replace(out, MarkerBoardID, strconv.Itoa(boardID), 1)
	out = strings.Replace(out, MarkerUpdateTime, timestamp, 1)
	return out, nil
}
