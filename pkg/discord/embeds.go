package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	idiscord "github.com/19722009abc/HelpyBot/internal/discord"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/services/accrual"
	"github.com/19722009abc/HelpyBot/pkg/services/bank"
	"github.com/19722009abc/HelpyBot/pkg/services/casino"
	"github.com/19722009abc/HelpyBot/pkg/services/leveling"
	"github.com/19722009abc/HelpyBot/pkg/services/raffle"
	"github.com/19722009abc/HelpyBot/pkg/services/robbery"
	"github.com/19722009abc/HelpyBot/pkg/services/shop"
)

const (
	colorGold  = 0xFFD700
	colorGreen = 0x2ECC71
	colorRed   = 0xE74C3C
	colorBlue  = 0x3498DB
	colorGrey  = 0x95A5A6
)

func coins(n int64) string {
	return fmt.Sprintf("🪙 %d", n)
}

func timestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

func progressBar(percent float64) string {
	const width = 10
	filled := int(percent / 100 * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

func fragmentsText(set entities.FragmentSet) string {
	if set.IsZero() {
		return "none"
	}
	parts := make([]string, 0, entities.TierCount)
	for _, t := range entities.FragmentTiers {
		if q := set.Get(t); q > 0 {
			parts = append(parts, fmt.Sprintf("%s %d %s", t.Emoji(), q, t))
		}
	}
	return strings.Join(parts, ", ")
}

// settlementEmbed renders any resolved game
func settlementEmbed(title, detail string, s *casino.Settlement) *discordgo.MessageEmbed {
	o := s.Outcome
	embed := &discordgo.MessageEmbed{Title: title, Description: detail, Color: colorRed}
	if o.Won() {
		embed.Color = colorGreen
	}

	result := "You lost."
	switch {
	case o.Won() && o.Stake > 0:
		result = fmt.Sprintf("You won %s (net %+d).", coins(o.Payout), o.Net())
	case o.Won():
		result = fmt.Sprintf("You earned %s.", coins(o.Payout))
	case o.Stake > 0:
		result = fmt.Sprintf("You lost your bet of %s.", coins(o.Stake))
	}
	embed.Fields = append(embed.Fields,
		field("Result", result, false),
		field("Wallet", coins(s.Balance), true),
	)
	if !s.Fragments.IsZero() {
		embed.Fields = append(embed.Fields, field("Fragments", fragmentsText(s.Fragments), true))
	}
	if s.Progress != nil {
		xp := fmt.Sprintf("+%d xp", s.Progress.Gained)
		if s.Progress.LeveledUp {
			xp += fmt.Sprintf(", level %d!", s.Progress.Level)
		}
		embed.Fields = append(embed.Fields, field("XP", xp, true))
	}
	return embed
}

func walletEmbed(acct *entities.Account, info leveling.LevelInfo, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("💰 %s's wallet", acct.Username),
		Color: colorGold,
		Fields: []*discordgo.MessageEmbedField{
			field("Balance", coins(acct.Balance), true),
			field("Level", fmt.Sprintf("%d (%d/%d xp)", info.Level, info.XP, info.Needed), true),
		},
	}
	if acct.PremiumActive(now) {
		embed.Fields = append(embed.Fields, field("Premium", "💎 until "+timestamp(*acct.PremiumUntil), true))
	}
	return embed
}

func dailyEmbed(r *accrual.DailyResult) *discordgo.MessageEmbed {
	title := "📅 Daily reward"
	if r.Premium {
		title += " 💎"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("You received %s!", coins(r.Amount)),
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			field("Wallet", coins(r.Balance), true),
			field("Next claim", timestamp(r.NextClaim), true),
		},
	}
}

func levelEmbed(username string, info leveling.LevelInfo) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("⭐ %s is level %d", username, info.Level),
		Color: colorBlue,
		Description: fmt.Sprintf("%s %.1f%%\n%d / %d xp to level %d",
			progressBar(info.Progress), info.Progress, info.XP, info.Needed, info.Level+1),
	}
}

func transferEmbed(toID string, amount, balance int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "💸 Transfer complete",
		Description: fmt.Sprintf("Sent %s to <@%s>.", coins(amount), toID),
		Color:       colorGreen,
		Fields:      []*discordgo.MessageEmbedField{field("Wallet", coins(balance), true)},
	}
}

func guessEmbed(round *casino.GuessRound) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🔢 Guess the number",
		Description: fmt.Sprintf("I picked a number between 1 and %d. Bet: %s", round.Max, coins(round.Stake)),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("The round expires in %s", idiscord.FormatDuration(casino.GuessTTL))},
	}
}

// guessButtons lays the numbers out five per row
func guessButtons(ownerID string, max int) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent
	for n := 1; n <= max; n++ {
		row = append(row, discordgo.Button{
			Label:    fmt.Sprint(n),
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s:%s:%d", prefixGuess, ownerID, n),
		})
		if len(row) == 5 || n == max {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	return rows
}

func hangmanEmbed(game *casino.Hangman) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🪢 Hangman",
		Description: fmt.Sprintf("Category: **%s**\n```%s```", game.Category, game.Masked()),
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			field("Lives", strings.Repeat("❤️", game.Lives)+strings.Repeat("🖤", game.MaxLives-game.Lives), true),
			field("Used", usedLetters(game.Used), true),
		},
	}
	if game.Finished() {
		embed.Fields = append(embed.Fields, field("Word", game.Word, false))
	}
	return embed
}

func usedLetters(used []string) string {
	if len(used) == 0 {
		return "none"
	}
	return strings.Join(used, " ")
}

func hangmanButtons(ownerID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Give up",
				Style:    discordgo.DangerButton,
				CustomID: fmt.Sprintf("%s:%s:giveup", prefixHangman, ownerID),
			},
		}},
	}
}

func quizEmbed(q *casino.Quiz) *discordgo.MessageEmbed {
	question := q.Question()
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🧠 Quiz, question %d of %d", q.Current+1, len(q.Questions)),
		Color: colorBlue,
	}
	if question == nil {
		return embed
	}
	lines := make([]string, len(question.Options))
	for idx, opt := range question.Options {
		lines[idx] = fmt.Sprintf("**%d.** %s", idx+1, opt)
	}
	embed.Description = question.Prompt + "\n\n" + strings.Join(lines, "\n")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d correct so far", q.Correct)}
	return embed
}

func quizButtons(ownerID string, q *casino.Quiz) []discordgo.MessageComponent {
	question := q.Question()
	if question == nil {
		return nil
	}
	row := make([]discordgo.MessageComponent, len(question.Options))
	for idx := range question.Options {
		row[idx] = discordgo.Button{
			Label:    fmt.Sprint(idx + 1),
			Style:    discordgo.PrimaryButton,
			CustomID: fmt.Sprintf("%s:%s:%d", prefixQuiz, ownerID, idx),
		}
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: row}}
}

func robEmbed(victimID string, r *robbery.Result) *discordgo.MessageEmbed {
	a := r.Attempt
	embed := &discordgo.MessageEmbed{Title: "🦹 Robbery", Color: colorRed}
	switch a.Result {
	case entities.RobberySuccess:
		embed.Color = colorGreen
		embed.Description = fmt.Sprintf("You stole %s from <@%s>!", coins(a.Amount), victimID)
	case entities.RobberyCaught:
		embed.Description = fmt.Sprintf("The police caught you. You paid a fine of %s and went to jail for %d minutes.", coins(a.Fine), a.JailMinutes)
		if r.ReleaseAt != nil {
			embed.Fields = append(embed.Fields, field("Release", timestamp(*r.ReleaseAt), true))
		}
	default:
		embed.Color = colorGrey
		embed.Description = fmt.Sprintf("<@%s> noticed you and you ran away empty-handed.", victimID)
	}
	embed.Fields = append(embed.Fields,
		field("Chance", fmt.Sprintf("%d%%", r.Chance), true),
		field("Wallet", coins(r.Balance), true),
	)
	return embed
}

func bankEmbed(st *bank.Statement, loan *entities.Loan) *discordgo.MessageEmbed {
	acct := st.Account
	embed := &discordgo.MessageEmbed{
		Title: "🏦 Bank account",
		Color: colorGold,
		Fields: []*discordgo.MessageEmbedField{
			field("Balance", coins(acct.Balance), true),
			field("Interest earned", coins(acct.InterestEarned), true),
			field("Deposited / withdrawn", fmt.Sprintf("%d / %d", acct.TotalDeposited, acct.TotalWithdrawn), true),
		},
	}
	if st.Interest > 0 {
		embed.Description = fmt.Sprintf("Interest of %s was credited for %d day(s).", coins(st.Interest), st.Days)
	}
	for _, inv := range st.Matured {
		embed.Fields = append(embed.Fields, field("Investment matured",
			fmt.Sprintf("%s plan paid %s", inv.Plan, coins(inv.ExpectedReturn)), false))
	}
	if loan != nil {
		embed.Fields = append(embed.Fields, loanField(loan))
	}
	return embed
}

func loanField(loan *entities.Loan) *discordgo.MessageEmbedField {
	return field("Loan",
		fmt.Sprintf("%s plan: %s left of %s, due %s", loan.Plan, coins(loan.Remaining()), coins(loan.TotalDue), timestamp(loan.DueAt)), false)
}

func investmentsEmbed(invs []*entities.Investment) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "📈 Investments", Color: colorBlue}
	if len(invs) == 0 {
		embed.Description = "You have no investments."
		return embed
	}
	for _, inv := range invs {
		status := "matures " + timestamp(inv.EndAt)
		if inv.Status == entities.InvestmentStatusMatured {
			status = "matured"
		}
		embed.Fields = append(embed.Fields, field(
			fmt.Sprintf("#%d %s", inv.ID, inv.Plan),
			fmt.Sprintf("%s -> %s (%.1f%%), %s", coins(inv.Principal), coins(inv.ExpectedReturn), inv.Rate, status), false))
	}
	return embed
}

func raffleEmbed(st *raffle.Status, held int64, top []*entities.RaffleTicket) *discordgo.MessageEmbed {
	r := st.Raffle
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🎟️ Raffle #%d", r.ID),
		Color: colorGold,
		Fields: []*discordgo.MessageEmbedField{
			field("Prize", coins(r.Prize), true),
			field("Draw", timestamp(r.EndsAt), true),
			field("Your tickets", fmt.Sprint(held), true),
			field("Ticket price", coins(raffle.TicketPrice), true),
		},
	}
	if d := st.Settled; d != nil && !d.Extended {
		embed.Description = fmt.Sprintf("Raffle #%d was just drawn: <@%s> won %s!", d.Raffle.ID, d.WinnerID, coins(d.Prize))
	}
	if len(top) > 0 {
		lines := make([]string, len(top))
		for idx, t := range top {
			lines[idx] = fmt.Sprintf("%d. <@%s>: %d", idx+1, t.AccountID, t.Quantity)
		}
		embed.Fields = append(embed.Fields, field("Top participants", strings.Join(lines, "\n"), false))
	}
	return embed
}

func shopEmbed(items []*entities.ShopItem, offers []*entities.DailyOffer) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "🛒 Shop", Color: colorGold}
	if len(offers) > 0 {
		lines := make([]string, len(offers))
		for idx, o := range offers {
			lines[idx] = fmt.Sprintf("`#%d` %s ~~%d~~ %s (-%d%%)", o.Item.ID, o.Item.Name, o.Item.Price, coins(o.Price()), o.DiscountPercent)
		}
		embed.Fields = append(embed.Fields, field("Today's offers", strings.Join(lines, "\n"), false))
	}
	var lines []string
	for _, item := range items {
		premium := ""
		if item.PremiumOnly {
			premium = " 💎"
		}
		lines = append(lines, fmt.Sprintf("`#%d` **%s**%s %s: %s", item.ID, item.Name, premium, coins(item.Price), item.Description))
	}
	if len(lines) == 0 {
		embed.Description = "The shop is empty."
	} else {
		embed.Description = strings.Join(lines, "\n")
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /buy item:<id> to purchase"}
	return embed
}

func receiptEmbed(r *shop.Receipt) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("You bought %dx **%s** for %s.", r.Quantity, r.Item.Name, coins(r.Total))
	if r.DiscountPercent > 0 {
		desc += fmt.Sprintf(" Daily offer: -%d%%.", r.DiscountPercent)
	}
	return &discordgo.MessageEmbed{
		Title:       "🧾 Purchase complete",
		Description: desc,
		Color:       colorGreen,
		Fields:      []*discordgo.MessageEmbedField{field("Wallet", coins(r.Balance), true)},
	}
}

func recipesEmbed(recipes []*entities.Recipe) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "⚒️ Recipes", Color: colorBlue}
	for _, r := range recipes {
		cost := fragmentsText(r.Fragments)
		if r.CoinCost > 0 {
			cost += " + " + coins(r.CoinCost)
		}
		embed.Fields = append(embed.Fields, field(fmt.Sprintf("#%d %s", r.ID, r.Name), r.Description+"\n"+cost, false))
	}
	if len(recipes) == 0 {
		embed.Description = "No recipes yet."
	}
	return embed
}

func craftEmbed(r *shop.CraftResult) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚒️ Crafted!",
		Description: fmt.Sprintf("You crafted **%s**.", r.Item.Name),
		Color:       colorGreen,
		Fields:      []*discordgo.MessageEmbedField{field("Fragments left", fragmentsText(r.Fragments), false)},
	}
}

func fragmentsEmbed(set entities.FragmentSet) *discordgo.MessageEmbed {
	lines := make([]string, 0, entities.TierCount)
	for _, t := range entities.FragmentTiers {
		lines = append(lines, fmt.Sprintf("%s %s: **%d**", t.Emoji(), t, set.Get(t)))
	}
	return &discordgo.MessageEmbed{
		Title:       "🧩 Fragments",
		Description: strings.Join(lines, "\n"),
		Color:       colorBlue,
	}
}

func inventoryEmbed(entries []*entities.InventoryEntry, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "🎒 Inventory", Color: colorBlue}
	if len(entries) == 0 {
		embed.Description = "Your inventory is empty."
		return embed
	}
	lines := make([]string, len(entries))
	for idx, e := range entries {
		state := ""
		switch {
		case e.Active && e.ExpiresAt != nil && e.ExpiresAt.After(now):
			state = " (active, ends " + timestamp(*e.ExpiresAt) + ")"
		case e.Active && e.ExpiresAt == nil:
			state = " (active)"
		}
		lines[idx] = fmt.Sprintf("`#%d` %dx **%s**%s", e.Item.ID, e.Quantity, e.Item.Name, state)
	}
	embed.Description = strings.Join(lines, "\n")
	return embed
}

func premiumEmbed(acct *entities.Account, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "💎 Premium", Color: colorGold}
	if acct.PremiumActive(now) {
		embed.Description = "Premium is active until " + timestamp(*acct.PremiumUntil) + "."
	} else {
		embed.Description = "Premium gives a 1.5x daily reward with a 20 hour cooldown."
	}
	lines := make([]string, len(accrual.PremiumPackages))
	for idx, p := range accrual.PremiumPackages {
		lines[idx] = fmt.Sprintf("`%s` %d days for %s", p.ID, p.Days, coins(p.Price))
	}
	embed.Fields = append(embed.Fields, field("Packages", strings.Join(lines, "\n"), false))
	return embed
}
