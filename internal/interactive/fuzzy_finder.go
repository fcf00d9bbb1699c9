package interactive

import (
	"os"
	"strconv"
	"strings"

	"ec2ctl/pkg/logging"

	"github.com/ktr0731/go-fuzzyfinder"
)

// SelectorHeightEnv sets how many rows the picker shows
const SelectorHeightEnv = "EC2CTL_SELECTOR_HEIGHT"

// getDisplayItemCount returns the number of items to display in the fuzzy finder
func getDisplayItemCount() int {
	heightStr := strings.TrimSpace(os.Getenv(SelectorHeightEnv))
	if heightStr == "" {
		return 10
	}

	height, err := strconv.Atoi(heightStr)
	if err != nil || height < 1 {
		logging.LogWarn("Invalid %s value '%s', using default of 10", SelectorHeightEnv, heightStr)
		return 10
	}

	if height > 20 {
		logging.LogWarn("%s of %d is too large, limiting to 20", SelectorHeightEnv, height)
		return 20
	}

	return height
}

// FuzzyFindMulti lets the user pick any number of items with Tab.
func FuzzyFindMulti(items interface{}, itemFunc func(i int) string, header string, previewFunc func(i, w, h int) string) ([]int, error) {
	totalHeight := getDisplayItemCount() + 5

	return fuzzyfinder.FindMulti(items,
		itemFunc,
		fuzzyfinder.WithCursorPosition(fuzzyfinder.CursorPositionBottom),
		fuzzyfinder.WithPromptString("Type to search, Tab to select > "),
		fuzzyfinder.WithHeader(header),
		fuzzyfinder.WithMode(fuzzyfinder.ModeSmart),
		fuzzyfinder.WithHeight(totalHeight),
		fuzzyfinder.WithHorizontalAlignment(fuzzyfinder.AlignLeft),
		fuzzyfinder.WithBorder(),
		fuzzyfinder.WithPreviewWindow(previewFunc),
	)
}
