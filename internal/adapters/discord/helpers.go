package discord

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// findOpt busca una opción por nombre, también dentro del subcomando.
// Los subcomandos nunca matchean: /dj role tiene una opción que también se llama role.
func findOpt(ic *discordgo.InteractionCreate, name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand:
			for _, so := range o.Options {
				if so.Name == name {
					return so, true
				}
			}
		case discordgo.ApplicationCommandOptionSubCommandGroup:
			// no usamos grupos
		default:
			if o.Name == name {
				return o, true
			}
		}
	}
	return nil, false
}

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionString {
		return "", false
	}
	return o.StringValue(), true
}

func optBool(ic *discordgo.InteractionCreate, name string) (bool, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionBoolean {
		return false, false
	}
	return o.BoolValue(), true
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(o.IntValue()), true
}

func optNumber(ic *discordgo.InteractionCreate, name string) (float64, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionNumber {
		return 0, false
	}
	return o.FloatValue(), true
}

// optRole devuelve sólo el ID; sin sesión no se resuelve el rol completo.
func optRole(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionRole {
		return "", false
	}
	return o.RoleValue(nil, "").ID, true
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// fmtDuration: m:ss o h:mm:ss.
func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Round(time.Second).Seconds())
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// truncate corta en runas para no romper UTF-8 (límites de embeds/labels).
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max(0, n-1)])) + "…"
}
