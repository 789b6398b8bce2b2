package tui

import (
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
)

type digestLoadedMsg struct {
	digest   *digest.Digest
	liked    []content.Item
	warnings []string
}

type feedErrMsg struct {
	err error
}

type likeToggledMsg struct {
	link  string
	liked bool
}

type refreshDoneMsg struct {
	count int
	errs  []error
}
