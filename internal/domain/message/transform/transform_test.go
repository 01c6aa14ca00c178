package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
)

var known = []string{"rivalnews", "@OtherChan", "thirdparty"}

func TestDetectCompetitorMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"mention", "Read @RivalNews today", []string{"rivalnews"}},
		{"link", "see https://t.me/otherchan/12", []string{"otherchan"}},
		{"telegram.me link", "via telegram.me/ThirdParty", []string{"thirdparty"}},
		{"order of first appearance", "t.me/otherchan and @rivalnews and @otherchan", []string{"otherchan", "rivalnews"}},
		{"deduplicated", "@rivalnews @RIVALNEWS t.me/rivalnews", []string{"rivalnews"}},
		{"unknown handles ignored", "@somebody_else", []string{}},
		{"too short", "@abcd", []string{}},
		{"longer handle is not a prefix match", "@rivalnewsdaily", []string{}},
		{"email is not a mention", "mail editor@rivalnews", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCompetitorMentions(tt.text, known))
		})
	}
}

func TestReplaceCompetitorMentions(t *testing.T) {
	text := "Follow @RivalNews or https://t.me/rivalnews/5, not @friendly_chan"

	got := ReplaceCompetitorMentions(text, []string{"rivalnews"}, "@MyChannel")

	assert.Equal(t, "Follow @MyChannel or https://t.me/MyChannel/5, not @friendly_chan", got)
}

func TestReplaceCompetitorMentions_NoDetected(t *testing.T) {
	text := "nothing @rivalnews"
	assert.Equal(t, text, ReplaceCompetitorMentions(text, nil, "mychannel"))
	assert.Equal(t, text, ReplaceCompetitorMentions(text, []string{"rivalnews"}, ""))
}

func TestAppendCallToAction(t *testing.T) {
	got := AppendCallToAction("Post", "@mine_channel")
	assert.Equal(t, "Post\n\n📢 Subscribe for more: @mine_channel\n👉 Join us today: @mine_channel", got)

	assert.Equal(t, got, AppendCallToAction(got, "mine_channel"), "suffix is appended once")
	assert.Equal(t, "", AppendCallToAction("", "mine_channel"))
	assert.Equal(t, "Post", AppendCallToAction("Post", ""))
}

func TestProcessMessageText(t *testing.T) {
	res := ProcessMessageText("Big news from @rivalnews", known, "mine_channel")

	assert.Equal(t, []string{"rivalnews"}, res.DetectedCompetitors)
	assert.Equal(t, "Big news from @mine_channel", res.ModifiedText)
	assert.Equal(t, res.ModifiedText+CallToAction("mine_channel"), res.FinalText)
}

func TestProcessMessageText_NoCompetitors(t *testing.T) {
	res := ProcessMessageText("plain text", known, "mine_channel")

	assert.Empty(t, res.DetectedCompetitors)
	assert.Equal(t, "plain text", res.ModifiedText)
	assert.Equal(t, "plain text"+CallToAction("mine_channel"), res.FinalText)
}

func TestProcessMessageText_RewrittenTextHasNoCompetitors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		known  []string
		detect []string
	}{
		{"mention and link", "Check out @rival_co and t.me/rival_co", []string{"rival_co"}, []string{"rival_co"}},
		{"mention", "Big news from @rivalnews", known, []string{"rivalnews"}},
		{"t.me link", "see https://t.me/otherchan/12", known, []string{"otherchan"}},
		{"telegram.me link", "via telegram.me/ThirdParty", known, []string{"thirdparty"}},
		{"mixed case", "@RivalNews and T.ME/RIVALNEWS", known, []string{"rivalnews"}},
		{"adjacent punctuation", "(@rivalnews),@otherchan! t.me/thirdparty.", known, []string{"rivalnews", "otherchan", "thirdparty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := ProcessMessageText(tt.text, tt.known, "my_channel")
			require.Equal(t, tt.detect, first.DetectedCompetitors)

			again := ProcessMessageText(first.FinalText, tt.known, "my_channel")
			assert.Empty(t, again.DetectedCompetitors)
			assert.Equal(t, first.FinalText, again.ModifiedText)
			assert.Equal(t, first.FinalText, again.FinalText)
		})
	}
}

func TestProcessMessageText_MentionAndLink(t *testing.T) {
	res := ProcessMessageText("Check out @rival_co and t.me/rival_co", []string{"rival_co"}, "@my_channel")

	assert.Equal(t, []string{"rival_co"}, res.DetectedCompetitors)
	assert.Equal(t, "Check out @my_channel and t.me/my_channel", res.ModifiedText)
}

func TestLoadCompetitors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "competitors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("own_handle: \"@Mine_Channel\"\ncompetitors:\n  - \"@RivalNews\"\n  - \"\"\n  - otherchan\n"), 0o600))

	c, err := LoadCompetitors(path)

	require.NoError(t, err)
	assert.Equal(t, "mine_channel", c.OwnHandle)
	assert.Equal(t, []string{"rivalnews", "otherchan"}, c.Competitors)
}

func TestLoadCompetitors_Missing(t *testing.T) {
	c, err := LoadCompetitors(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Empty(t, c.Competitors)
}

func TestLoadCompetitors_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "competitors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("competitors: [unterminated"), 0o600))

	_, err := LoadCompetitors(path)
	assert.Error(t, err)
}

func TestTransformer_Message(t *testing.T) {
	tr := NewTransformer(&Competitors{OwnHandle: "mine_channel", Competitors: []string{"rivalnews"}}, nil)

	msg := tr.Message(entities.Message{Channel: "src", ID: 1, Text: "@rivalnews"})

	assert.Equal(t, "@rivalnews", msg.Text)
	assert.Equal(t, []string{"rivalnews"}, msg.DetectedCompetitors)
	assert.Equal(t, "@mine_channel", msg.ModifiedText)
	assert.Contains(t, msg.FinalText, "Join us today: @mine_channel")
}
