package refboard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chessannotate/core/pkg/collab"
)

const startingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// PGN is a collab.PGNModule backed by this package's own board. Parse
// replays each movetext token against the board to recover both SAN and UCI
// and to validate legality; castling tokens ("O-O"/"O-O-O") are rejected as
// illegal, consistent with this package's lack of castling support.
type PGN struct{}

var _ collab.PGNModule = PGN{}

var tagPairPattern = regexp.MustCompile(`(?m)^\[(\w+)\s+"([^"]*)"\]\s*$`)
var commentPattern = regexp.MustCompile(`\{[^}]*\}`)
var nagPattern = regexp.MustCompile(`\$\d+`)
var moveNumberPattern = regexp.MustCompile(`\d+\.(\.\.)?`)
var resultPattern = regexp.MustCompile(`^(1-0|0-1|1/2-1/2|\*)$`)

func (PGN) Parse(text string) ([]collab.Game, error) {
	var games []collab.Game
	for _, block := range splitGames(text) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		g, err := parseOne(block)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

// splitGames breaks a multi-game PGN file into per-game blocks, one per tag
// section plus the movetext that follows it up to the next tag section.
func splitGames(text string) []string {
	lines := strings.Split(text, "\n")
	var blocks []string
	var cur []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "[Event ") && len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	return blocks
}

func parseOne(block string) (collab.Game, error) {
	tags := map[string]string{}
	for _, m := range tagPairPattern.FindAllStringSubmatch(block, -1) {
		tags[m[1]] = m[2]
	}

	movetext := tagPairPattern.ReplaceAllString(block, "")
	movetext = commentPattern.ReplaceAllString(movetext, " ")
	movetext = nagPattern.ReplaceAllString(movetext, " ")
	movetext = moveNumberPattern.ReplaceAllString(movetext, " ")

	startFEN := tags["FEN"]
	if startFEN == "" {
		startFEN = startingFEN
	}
	b, err := decodeFEN(startFEN)
	if err != nil {
		return collab.Game{}, fmt.Errorf("refboard: bad FEN tag %q: %w", tags["FEN"], err)
	}

	var moves []collab.GameMove
	for _, tok := range strings.Fields(movetext) {
		if resultPattern.MatchString(tok) {
			continue
		}
		m, ok := findMove(b, tok)
		if !ok {
			return collab.Game{}, fmt.Errorf("refboard: illegal or unrecognized move %q", tok)
		}
		moves = append(moves, collab.GameMove{SAN: san(b, m), UCI: uci(m)})
		b = b.apply(m)
	}

	return collab.Game{Tags: tags, Moves: moves, StartFEN: startFEN}, nil
}

func (PGN) Render(g collab.AnnotatedGame) (string, error) {
	var sb strings.Builder
	for _, key := range orderedTagKeys(g.Tags) {
		fmt.Fprintf(&sb, "[%v \"%v\"]\n", key, g.Tags[key])
	}
	sb.WriteRune('\n')

	if g.HeaderComment != "" {
		fmt.Fprintf(&sb, "{%v}\n", g.HeaderComment)
	}

	renderMoves(&sb, g.Moves, true)

	if result, ok := g.Tags["Result"]; ok && result != "" {
		sb.WriteRune(' ')
		sb.WriteString(result)
	}
	sb.WriteRune('\n')
	return sb.String(), nil
}

var tagOrder = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

func orderedTagKeys(tags map[string]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, k := range tagOrder {
		if _, ok := tags[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	for k := range tags {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

func renderMoves(sb *strings.Builder, moves []collab.AnnotatedMove, numbered bool) {
	for i, m := range moves {
		if numbered && i%2 == 0 {
			fmt.Fprintf(sb, "%d. ", i/2+1)
		}
		sb.WriteString(m.SAN)
		for _, nag := range m.NAGs {
			fmt.Fprintf(sb, " $%d", nag)
		}
		if m.Comment != "" {
			fmt.Fprintf(sb, " {%v}", m.Comment)
		}
		for _, v := range m.Variations {
			sb.WriteString(" (")
			renderMoves(sb, v.Moves, true)
			sb.WriteString(")")
		}
		sb.WriteRune(' ')
	}
}
