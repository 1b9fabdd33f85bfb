package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/services/casino"
)

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(1, 2)

	assert.True(t, l.Allow("u1", t0))
	assert.True(t, l.Allow("u1", t0))
	assert.False(t, l.Allow("u1", t0), "burst spent")
	assert.True(t, l.Allow("u2", t0))
	assert.True(t, l.Allow("u1", t0.Add(time.Second)), "one token refills per second")
}

func TestUserLimiterDefaults(t *testing.T) {
	l := newUserLimiter(0, 0)

	for n := 0; n < defaultBurst; n++ {
		require.True(t, l.Allow("u1", t0))
	}
	assert.False(t, l.Allow("u1", t0))
}

func TestInteractionDedup(t *testing.T) {
	d := newInteractionDedup(time.Minute)

	assert.True(t, d.First("a", t0))
	assert.False(t, d.First("a", t0.Add(time.Second)))
	assert.True(t, d.First("b", t0.Add(time.Second)))

	// the cleanup forgets ids older than the ttl
	assert.True(t, d.First("a", t0.Add(2*time.Minute)))
	assert.Len(t, d.seen, 1)
}

func TestComponentArgs(t *testing.T) {
	i := button("i1", "u1", "quiz:u1:2")
	assert.Equal(t, []string{"u1", "2"}, componentArgs(i))
	assert.Nil(t, componentArgs(button("i2", "u1", "quiz")))
}

func TestGuessButtons(t *testing.T) {
	rows := guessButtons("u1", 12)

	require.Len(t, rows, 3)
	first := rows[0].(discordgo.ActionsRow)
	assert.Len(t, first.Components, 5)
	assert.Equal(t, "guess:u1:1", first.Components[0].(discordgo.Button).CustomID)
	last := rows[2].(discordgo.ActionsRow)
	assert.Equal(t, "guess:u1:12", last.Components[1].(discordgo.Button).CustomID)
}

func TestSettlementEmbed(t *testing.T) {
	tests := []struct {
		name    string
		outcome *entities.Outcome
		result  string
		color   int
	}{
		{"stake won", &entities.Outcome{Stake: 100, Payout: 250, Result: entities.StringResultWin}, "You won 🪙 250 (net +150).", colorGreen},
		{"free reward", &entities.Outcome{Payout: 80, Result: entities.StringResultWin}, "You earned 🪙 80.", colorGreen},
		{"stake lost", &entities.Outcome{Stake: 100, Result: entities.StringResultLose}, "You lost your bet of 🪙 100.", colorRed},
		{"free loss", &entities.Outcome{Result: entities.StringResultLose}, "You lost.", colorRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := settlementEmbed("Dice", "detail", &casino.Settlement{Outcome: tt.outcome, Balance: 900})
			assert.Equal(t, tt.color, embed.Color)
			assert.Equal(t, tt.result, embed.Fields[0].Value)
			assert.Equal(t, "🪙 900", embed.Fields[1].Value)
		})
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▱▱▱▱▱▱▱▱▱▱", progressBar(0))
	assert.Equal(t, "▰▰▰▰▰▱▱▱▱▱", progressBar(50))
	assert.Equal(t, "▰▰▰▰▰▰▰▰▰▰", progressBar(150))
}
