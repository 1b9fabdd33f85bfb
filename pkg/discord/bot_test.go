package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	mockdiscord "github.com/19722009abc/HelpyBot/internal/discord/mock"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
	"github.com/19722009abc/HelpyBot/pkg/services/accrual"
	"github.com/19722009abc/HelpyBot/pkg/services/casino"
	"github.com/19722009abc/HelpyBot/pkg/services/ledger"
	mock_ledger_service "github.com/19722009abc/HelpyBot/pkg/services/ledger/mock"
	"github.com/19722009abc/HelpyBot/pkg/services/leveling"
	"github.com/19722009abc/HelpyBot/pkg/services/statistics"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type BotTestSuite struct {
	suite.Suite
	ctx     context.Context
	session *mockdiscord.SessionHandler
	repo    *ledgerRepo.MemoryRepository
	now     time.Time
	bot     *Bot
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (s *BotTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.session = new(mockdiscord.SessionHandler)
	s.session.On("InteractionRespond", mock.Anything, mock.Anything).Return(nil)
	s.repo = ledgerRepo.NewMemoryRepository()
	s.now = t0
	s.bot = s.newBot(Options{})
}

func (s *BotTestSuite) newBot(opts Options) *Bot {
	publisher := analytics.NewPublisher(nil)
	src := rng.Fixed{Int: 200}
	lvl := leveling.NewService(s.repo, nil, rng.Fixed{})
	opts.Clock = func() time.Time { return s.now }
	return NewBot(s.session, Services{
		Ledger:     ledger.NewService(s.repo, publisher),
		Accrual:    accrual.NewService(s.repo, src, publisher),
		Leveling:   lvl,
		Casino:     casino.NewService(s.repo, nil, lvl, nil, rng.Fixed{Int: 2}, publisher),
		Statistics: statistics.NewService(s.repo),
	}, opts)
}

func member(id string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "user-" + id}}
}

func command(id, userID, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      id,
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "g1",
			Member:  member(userID),
			Data:    discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
		},
	}
}

func button(id, userID, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      id,
			Type:    discordgo.InteractionMessageComponent,
			GuildID: "g1",
			Member:  member(userID),
			Data:    discordgo.MessageComponentInteractionData{CustomID: customID},
		},
	}
}

func intArg(name string, v int64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func userArgOption(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

// responses returns every interaction response sent so far
func (s *BotTestSuite) responses() []*discordgo.InteractionResponse {
	var out []*discordgo.InteractionResponse
	for _, call := range s.session.Calls {
		if call.Method == "InteractionRespond" {
			out = append(out, call.Arguments.Get(1).(*discordgo.InteractionResponse))
		}
	}
	return out
}

func (s *BotTestSuite) lastResponse() *discordgo.InteractionResponse {
	all := s.responses()
	s.Require().NotEmpty(all)
	return all[len(all)-1]
}

func (s *BotTestSuite) lastEmbed() *discordgo.MessageEmbed {
	resp := s.lastResponse()
	s.Require().Len(resp.Data.Embeds, 1)
	return resp.Data.Embeds[0]
}

func (s *BotTestSuite) TestRegistersEveryHandledCommand() {
	for _, cmd := range ApplicationCommands() {
		_, ok := s.bot.commands[cmd.Name]
		s.True(ok, "no handler for /%s", cmd.Name)
	}
	s.Len(s.bot.commands, len(ApplicationCommands()))
}

func (s *BotTestSuite) TestDailyClaim() {
	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "daily"))

	embed := s.lastEmbed()
	s.Contains(embed.Description, "🪙 1200")

	acct, err := s.repo.GetAccount(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(1200), acct.Balance)
	s.Equal(leveling.CommandXP("daily"), acct.XP, "successful commands award xp")
}

func (s *BotTestSuite) TestDailyTwiceIsRejected() {
	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "daily"))
	s.now = s.now.Add(time.Hour)
	s.bot.HandleInteraction(s.ctx, command("i2", "u1", "daily"))

	resp := s.lastResponse()
	s.Equal(discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	s.Contains(resp.Data.Content, "already claimed")
	s.NotContains(resp.Data.Content, "try again in")

	acct, err := s.repo.GetAccount(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(leveling.CommandXP("daily"), acct.XP, "failed commands award no xp")
}

func (s *BotTestSuite) TestReplayedInteractionIsIgnored() {
	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "daily"))
	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "daily"))

	s.Len(s.responses(), 1)
}

func (s *BotTestSuite) TestUnknownCommand() {
	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "blackjack"))

	resp := s.lastResponse()
	s.Contains(resp.Data.Content, `unknown command "blackjack"`)
	s.Equal(discordgo.MessageFlagsEphemeral, resp.Data.Flags)
}

func (s *BotTestSuite) TestRateLimit() {
	s.bot = s.newBot(Options{RatePerSecond: 1, Burst: 1})

	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "wallet"))
	s.bot.HandleInteraction(s.ctx, command("i2", "u1", "wallet"))
	s.Contains(s.lastResponse().Data.Content, "too fast")

	s.bot.HandleInteraction(s.ctx, command("i3", "u2", "wallet"))
	s.Len(s.lastResponse().Data.Embeds, 1, "other members have their own bucket")

	s.now = s.now.Add(2 * time.Second)
	s.bot.HandleInteraction(s.ctx, command("i4", "u1", "wallet"))
	s.Len(s.lastResponse().Data.Embeds, 1)
}

func (s *BotTestSuite) TestDiceWin() {
	s.repo.SetBalance("u1", 1000, s.now)

	// both dice show 3
	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "dice", intArg("amount", 100), intArg("prediction", 6)))

	embed := s.lastEmbed()
	s.Contains(embed.Description, "3 + 3 = **6**")

	acct, err := s.repo.GetAccount(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(1000-100+700), acct.Balance)
}

func (s *BotTestSuite) TestDiceInvalidPrediction() {
	s.repo.SetBalance("u1", 1000, s.now)

	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "dice", intArg("amount", 100), intArg("prediction", 13)))

	s.Contains(s.lastResponse().Data.Content, "prediction must be between 2 and 12")
	acct, err := s.repo.GetAccount(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(1000), acct.Balance, "rejected bets debit nothing")
}

func (s *BotTestSuite) TestGameButtonsBelongToTheirOwner() {
	s.bot.HandleInteraction(s.ctx, button("i1", "u2", "guess:u1:4"))

	s.Contains(s.lastResponse().Data.Content, "this is not your game")
}

func (s *BotTestSuite) TestTopCommandIsRouted() {
	s.repo.SetBalance("u1", 500, s.now)

	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "top"))
	s.Contains(s.lastEmbed().Description, "**u1**")

	s.bot.HandleInteraction(s.ctx, button("i2", "u1", "top:refresh:coins:1"))
	s.Equal(discordgo.InteractionResponseUpdateMessage, s.lastResponse().Type)
}

func (s *BotTestSuite) TestTransfer() {
	ctrl := gomock.NewController(s.T())
	svc := mock_ledger_service.NewMockLedgerService(ctrl)
	s.bot.services.Ledger = svc

	svc.EXPECT().
		Transfer(gomock.Any(), ledger.TransferRequest{
			From: "u1", To: "u2", FromName: "user-u1", ToName: "u2", Amount: 250, Now: t0,
		}).
		Return(&ledger.TransferResult{
			Out: &entities.Transaction{AccountID: "u1", Amount: -250, BalanceAfter: 750},
			In:  &entities.Transaction{AccountID: "u2", Amount: 250, BalanceAfter: 250},
		}, nil)

	s.bot.HandleInteraction(s.ctx, command("i1", "u1", "transfer", userArgOption("u2"), intArg("amount", 250)))

	embed := s.lastEmbed()
	s.Contains(embed.Description, "<@u2>")
}

func (s *BotTestSuite) TestTransferToBotIsRejected() {
	i := command("i1", "u1", "transfer", userArgOption("b1"), intArg("amount", 250))
	data := i.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved = &discordgo.ApplicationCommandInteractionDataResolved{
		Users: map[string]*discordgo.User{"b1": {ID: "b1", Username: "helper", Bot: true}},
	}
	i.Data = data

	s.bot.HandleInteraction(s.ctx, i)

	s.Contains(s.lastResponse().Data.Content, "bots have no wallet")
}

func (s *BotTestSuite) TestMessageXP() {
	s.bot.handleMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1", GuildID: "g1", Author: &discordgo.User{ID: "u1", Username: "ana"},
	}})
	s.bot.handleMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1", GuildID: "g1", Author: &discordgo.User{ID: "bot", Bot: true},
	}})

	acct, err := s.repo.GetAccount(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(leveling.MessageXPMin), acct.XP)
	_, err = s.repo.GetAccount(s.ctx, "bot")
	s.Error(err, "bots earn nothing")
	s.session.AssertNotCalled(s.T(), "ChannelMessageSend", mock.Anything, mock.Anything)
}

func (s *BotTestSuite) TestMessageLevelUpIsAnnounced() {
	_, err := s.repo.EnsureAccount(s.ctx, "u1", "ana", s.now)
	s.Require().NoError(err)
	_, _, err = s.repo.UpdateProgress(s.ctx, "u1", func(int64, int) (int64, int) {
		return leveling.XPForNextLevel(1) - 1, 1
	})
	s.Require().NoError(err)
	s.session.On("ChannelMessageSend", "c1", mock.Anything).Return(&discordgo.Message{}, nil)

	s.bot.handleMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1", GuildID: "g1", Author: &discordgo.User{ID: "u1", Username: "ana"},
	}})

	s.session.AssertCalled(s.T(), "ChannelMessageSend", "c1", "🎉 <@u1> reached level **2**!")
}

func (s *BotTestSuite) TestStartAndStop() {
	s.session.On("AddHandler", mock.Anything).Return(func() {})
	s.session.On("Open").Return(nil)
	s.session.On("Close").Return(nil)
	s.session.On("ApplicationCommandBulkOverwrite", "", "", mock.Anything).Return([]*discordgo.ApplicationCommand{}, nil)

	s.Require().NoError(s.bot.Start())
	s.Require().NoError(s.bot.Stop())

	s.session.AssertNumberOfCalls(s.T(), "AddHandler", 3)
	s.session.AssertCalled(s.T(), "Close")
}
