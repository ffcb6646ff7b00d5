package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// CreateBrandedEmbed creates a basic embed with bot branding
func CreateBrandedEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Crash",
		},
	}
}

// InsufficientFundsEmbed creates an embed for a rejected stake
func InsufficientFundsEmbed(amount int64) *discordgo.MessageEmbed {
	return CreateBrandedEmbed(
		"Not Enough Currency",
		fmt.Sprintf("You don't have enough for a bet of %s %s.", CurrencyIcon(), FormatChips(amount)),
		0xFF0000,
	)
}

// ErrorEmbed creates a generic red error embed
func ErrorEmbed(message string) *discordgo.MessageEmbed {
	return CreateBrandedEmbed("❌ Error", message, 0xFF0000)
}

// FormatMultiplier renders a multiplier the way the round embed shows it,
// e.g. 1.50×
func FormatMultiplier(m float64) string {
	return fmt.Sprintf("%.2f×", m)
}

// FormatChips formats a currency amount with thousands separators
func FormatChips(amount int64) string {
	return FormatNumber(amount)
}

func FormatNumber(num int64) string {
	str := strconv.FormatInt(num, 10)
	negative := strings.HasPrefix(str, "-")
	if negative {
		str = str[1:]
	}
	if len(str) <= 3 {
		if negative {
			return "-" + str
		}
		return str
	}

	var result strings.Builder
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(r)
	}

	if negative {
		return "-" + result.String()
	}
	return result.String()
}
