package parse

import (
	"testing"

	"github.com/bcspragu/Switchboard"
	"github.com/google/go-cmp/cmp"
)

func TestClue(t *testing.T) {
	tests := []struct {
		desc      string
		resp      string
		wantWord  string
		wantCount switchboard.Count
	}{
		{
			desc:      "clue and number lines",
			resp:      "Thinking about it...\nCLUE: ocean\nNUMBER: 3",
			wantWord:  "ocean",
			wantCount: switchboard.Fixed(3),
		},
		{
			desc:      "play label and quotes",
			resp:      "PLAY: \"orbit\"\nNUMBER: 2",
			wantWord:  "orbit",
			wantCount: switchboard.Fixed(2),
		},
		{
			desc:      "bold labels",
			resp:      "**CLUE:** river\n**NUMBER:** unlimited",
			wantWord:  "river",
			wantCount: switchboard.Unlimited,
		},
		{
			desc:      "zero",
			resp:      "CLUE: nothing\nNUMBER: 0",
			wantWord:  "nothing",
			wantCount: switchboard.Fixed(0),
		},
		{
			desc:      "word colon number",
			resp:      "My clue is below.\nfruit: 2",
			wantWord:  "fruit",
			wantCount: switchboard.Fixed(2),
		},
		{
			desc:      "unparseable number",
			resp:      "CLUE: metal\nNUMBER: a few",
			wantWord:  "metal",
			wantCount: DefaultCount,
		},
		{
			desc:      "negative number",
			resp:      "CLUE: metal\nNUMBER: -2",
			wantWord:  "metal",
			wantCount: DefaultCount,
		},
		{
			desc:      "empty clue line",
			resp:      "CLUE:\nNUMBER: 2",
			wantWord:  DefaultClue,
			wantCount: switchboard.Fixed(2),
		},
		{
			desc:      "empty quoted clue",
			resp:      "CLUE: \"\"\nNUMBER: 2",
			wantWord:  DefaultClue,
			wantCount: switchboard.Fixed(2),
		},
		{
			desc:      "empty clue line keeps an earlier clue",
			resp:      "CLUE: tide\nCLUE:\nNUMBER: 2",
			wantWord:  "tide",
			wantCount: switchboard.Fixed(2),
		},
		{
			desc:      "count with no word",
			resp:      ": 3",
			wantWord:  DefaultClue,
			wantCount: DefaultCount,
		},
		{
			desc:      "nothing useful",
			resp:      "I don't know.",
			wantWord:  DefaultClue,
			wantCount: DefaultCount,
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			word, count := Clue(test.resp)
			if word != test.wantWord {
				t.Errorf("word = %q, want %q", word, test.wantWord)
			}
			if count != test.wantCount {
				t.Errorf("count = %s, want %s", count, test.wantCount)
			}
		})
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		desc       string
		resp       string
		wantValid  bool
		wantReason string
	}{
		{
			desc:       "valid with reason",
			resp:       "VALID: single English word, not on the board",
			wantValid:  true,
			wantReason: "single English word, not on the board",
		},
		{
			desc:       "bare valid",
			resp:       "VALID",
			wantValid:  true,
			wantReason: FollowsRulesReason,
		},
		{
			desc:       "invalid with reason",
			resp:       "INVALID: the clue is a board word",
			wantValid:  false,
			wantReason: "the clue is a board word",
		},
		{
			desc:       "invalid then foul line",
			resp:       "INVALID\n# Notes\nFoul: clue is two words",
			wantValid:  false,
			wantReason: "clue is two words",
		},
		{
			desc:       "invalid then plain line",
			resp:       "INVALID\nThe clue rhymes with a board word.",
			wantValid:  false,
			wantReason: "The clue rhymes with a board word.",
		},
		{
			desc:       "foul without verdict",
			resp:       "Looking at the clue.\nFoul: variant of a board word",
			wantValid:  false,
			wantReason: "variant of a board word",
		},
		{
			desc:       "reasoning without verdict",
			resp:       "Reasoning: seems fine to me",
			wantValid:  true,
			wantReason: "seems fine to me",
		},
		{
			desc:       "rambling",
			resp:       "Hmm, interesting clue.",
			wantValid:  true,
			wantReason: DefaultValidReason,
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			valid, reason := Verdict(test.resp)
			if valid != test.wantValid {
				t.Errorf("valid = %t, want %t", valid, test.wantValid)
			}
			if reason != test.wantReason {
				t.Errorf("reason = %q, want %q", reason, test.wantReason)
			}
		})
	}
}

func TestGuesses(t *testing.T) {
	available := []string{"APPLE", "BANK", "LOCH NESS", "CELL", "DANCE"}

	tests := []struct {
		desc  string
		resp  string
		count switchboard.Count
		want  []string
	}{
		{
			desc:  "one per line",
			resp:  "apple\nbank\n",
			count: switchboard.Fixed(2),
			want:  []string{"APPLE", "BANK"},
		},
		{
			desc:  "comma separated with punctuation",
			resp:  "My guesses: \"Cell\", (dance), apple.",
			count: switchboard.Fixed(3),
			want:  []string{"CELL", "DANCE", "APPLE"},
		},
		{
			desc:  "numbered multi-word name",
			resp:  "1. Loch Ness\n2. Bank",
			count: switchboard.Fixed(1),
			want:  []string{"LOCH NESS", "BANK"},
		},
		{
			desc:  "limited to count plus one",
			resp:  "apple bank cell dance",
			count: switchboard.Fixed(1),
			want:  []string{"APPLE", "BANK"},
		},
		{
			desc:  "zero allows one",
			resp:  "bank apple",
			count: switchboard.Fixed(0),
			want:  []string{"BANK"},
		},
		{
			desc:  "unlimited keeps everything",
			resp:  "apple bank cell dance",
			count: switchboard.Unlimited,
			want:  []string{"APPLE", "BANK", "CELL", "DANCE"},
		},
		{
			desc:  "duplicates and comments dropped",
			resp:  "# thinking: cell\napple\nAPPLE\n// bank\ndance",
			count: switchboard.Fixed(5),
			want:  []string{"APPLE", "DANCE"},
		},
		{
			desc:  "nothing matches",
			resp:  "I have no idea.",
			count: switchboard.Fixed(2),
			want:  []string{"APPLE"},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got := Guesses(test.resp, available, test.count)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected guesses (-want +got)\n%s", diff)
			}
		})
	}

	if got := Guesses("apple", nil, switchboard.Fixed(1)); len(got) != 0 {
		t.Errorf("Guesses with nothing available = %v, want none", got)
	}
}
