package bot

import (
	"testing"

	"shopbot/internal/conversation"
)

func TestSplitToken(t *testing.T) {
	cases := []struct {
		token   string
		unique  string
		payload string
	}{
		{"flow_simple", "flow_simple", ""},
		{"category|3", "category", "3"},
		{"category|3|extra", "category", "3|extra"},
	}
	for _, tc := range cases {
		unique, payload := splitToken(tc.token)
		if unique != tc.unique || payload != tc.payload {
			t.Errorf("splitToken(%q) = (%q, %q), want (%q, %q)",
				tc.token, unique, payload, tc.unique, tc.payload)
		}
	}
}

func TestButtonsMarkup(t *testing.T) {
	markup := buttonsMarkup([][]conversation.ReplyButton{
		{
			{Label: "Simple", Token: conversation.TokenFlowSimple},
			{Label: "With variants", Token: conversation.TokenFlowComplex},
		},
		{
			{Label: "Cases", Token: "category|3"},
		},
	})
	if markup == nil {
		t.Fatal("expected markup")
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(markup.InlineKeyboard))
	}
	if len(markup.InlineKeyboard[0]) != 2 || len(markup.InlineKeyboard[1]) != 1 {
		t.Errorf("row sizes = %d, %d", len(markup.InlineKeyboard[0]), len(markup.InlineKeyboard[1]))
	}
	if markup.InlineKeyboard[0][0].Text != "Simple" {
		t.Errorf("button text = %q", markup.InlineKeyboard[0][0].Text)
	}

	if buttonsMarkup(nil) != nil {
		t.Error("empty rows should produce nil markup")
	}
}
