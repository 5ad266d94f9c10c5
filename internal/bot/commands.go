package bot

import (
	"rudyprotect/internal/analytics"
	"rudyprotect/internal/modules/blacklist"
	"rudyprotect/internal/modules/moderation"
	"rudyprotect/internal/modules/reports"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maxCaptchaTimeoutMinutes = 1440

func localized(fr, en string) map[discordgo.Locale]string {
	return map[discordgo.Locale]string{
		discordgo.French:    fr,
		discordgo.EnglishUS: en,
		discordgo.EnglishGB: en,
	}
}

func commandLocalized(fr, en string) *map[discordgo.Locale]string {
	m := localized(fr, en)
	return &m
}

func permission(perm int64) *int64 {
	return &perm
}

func floatPtr(v float64) *float64 {
	return &v
}

func userOption(fr, en string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionUser,
		Name:                     "user",
		Description:              fr,
		DescriptionLocalizations: localized(fr, en),
		Required:                 true,
	}
}

func reasonOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionString,
		Name:                     "reason",
		Description:              "Raison",
		DescriptionLocalizations: localized("Raison", "Reason"),
		Required:                 required,
		MaxLength:                512,
	}
}

// blacklistSubcommands builds the add/remove/update/view/list set for one list.
func blacklistSubcommands(valueFR, valueEN string) []*discordgo.ApplicationCommandOption {
	value := func() *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:                     discordgo.ApplicationCommandOptionString,
			Name:                     "value",
			Description:              valueFR,
			DescriptionLocalizations: localized(valueFR, valueEN),
			Required:                 true,
		}
	}
	return []*discordgo.ApplicationCommandOption{
		{
			Type:                     discordgo.ApplicationCommandOptionSubCommand,
			Name:                     "add",
			Description:              "Ajouter une entrée",
			DescriptionLocalizations: localized("Ajouter une entrée", "Add an entry"),
			Options:                  []*discordgo.ApplicationCommandOption{value(), reasonOption(false)},
		},
		{
			Type:                     discordgo.ApplicationCommandOptionSubCommand,
			Name:                     "remove",
			Description:              "Retirer une entrée",
			DescriptionLocalizations: localized("Retirer une entrée", "Remove an entry"),
			Options:                  []*discordgo.ApplicationCommandOption{value()},
		},
		{
			Type:                     discordgo.ApplicationCommandOptionSubCommand,
			Name:                     "update",
			Description:              "Modifier la raison",
			DescriptionLocalizations: localized("Modifier la raison", "Update the reason"),
			Options:                  []*discordgo.ApplicationCommandOption{value(), reasonOption(true)},
		},
		{
			Type:                     discordgo.ApplicationCommandOptionSubCommand,
			Name:                     "view",
			Description:              "Afficher une entrée",
			DescriptionLocalizations: localized("Afficher une entrée", "Show an entry"),
			Options:                  []*discordgo.ApplicationCommandOption{value()},
		},
		{
			Type:                     discordgo.ApplicationCommandOptionSubCommand,
			Name:                     "list",
			Description:              "Lister les entrées",
			DescriptionLocalizations: localized("Lister les entrées", "List entries"),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionInteger,
					Name:                     "limit",
					Description:              "Nombre d'entrées",
					DescriptionLocalizations: localized("Nombre d'entrées", "Number of entries"),
					MinValue:                 floatPtr(1),
					MaxValue:                 blacklist.MaxLimit,
				},
			},
		},
	}
}

func reportChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(reports.Types()))
	for _, t := range reports.Types() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: reports.Label(t), Value: t})
	}
	return choices
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "ban",
			Description:              "Bannir un membre",
			DescriptionLocalizations: commandLocalized("Bannir un membre", "Ban a member"),
			DefaultMemberPermissions: permission(discordgo.PermissionBanMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Le membre à bannir", "The member to ban"),
				reasonOption(false),
				{
					Type:                     discordgo.ApplicationCommandOptionInteger,
					Name:                     "delete_messages",
					Description:              "Jours de messages à supprimer (0-7)",
					DescriptionLocalizations: localized("Jours de messages à supprimer (0-7)", "Days of messages to delete (0-7)"),
					MinValue:                 floatPtr(0),
					MaxValue:                 moderation.MaxDeleteDays,
				},
			},
		},
		{
			Name:                     "kick",
			Description:              "Expulser un membre",
			DescriptionLocalizations: commandLocalized("Expulser un membre", "Kick a member"),
			DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Le membre à expulser", "The member to kick"),
				reasonOption(false),
			},
		},
		{
			Name:                     "mute",
			Description:              "Rendre muet un membre",
			DescriptionLocalizations: commandLocalized("Rendre muet un membre", "Timeout a member"),
			DefaultMemberPermissions: permission(discordgo.PermissionModerateMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Le membre à rendre muet", "The member to timeout"),
				{
					Type:                     discordgo.ApplicationCommandOptionInteger,
					Name:                     "duration",
					Description:              "Durée en minutes",
					DescriptionLocalizations: localized("Durée en minutes", "Duration in minutes"),
					Required:                 true,
					MinValue:                 floatPtr(moderation.MinMuteMinutes),
					MaxValue:                 moderation.MaxMuteMinutes,
				},
				reasonOption(false),
			},
		},
		{
			Name:                     "blacklist",
			Description:              "Gérer la liste noire",
			DescriptionLocalizations: commandLocalized("Gérer la liste noire", "Manage the blacklist"),
			DefaultMemberPermissions: permission(discordgo.PermissionAdministrator),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:                     "id",
					Description:              "Liste noire des identifiants",
					DescriptionLocalizations: localized("Liste noire des identifiants", "User ID blacklist"),
					Options:                  blacklistSubcommands("Identifiant Discord", "Discord user ID"),
				},
				{
					Type:                     discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:                     "ip",
					Description:              "Liste noire des adresses MAC",
					DescriptionLocalizations: localized("Liste noire des adresses MAC", "MAC address blacklist"),
					Options:                  blacklistSubcommands("Adresse MAC", "MAC address"),
				},
			},
		},
		{
			Name:                     "report",
			Description:              "Signaler un problème au développeur",
			DescriptionLocalizations: commandLocalized("Signaler un problème au développeur", "Report an issue to the developer"),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionString,
					Name:                     "type",
					Description:              "Type de signalement",
					DescriptionLocalizations: localized("Type de signalement", "Report type"),
					Required:                 true,
					Choices:                  reportChoices(),
				},
				{
					Type:                     discordgo.ApplicationCommandOptionString,
					Name:                     "details",
					Description:              "Description du problème",
					DescriptionLocalizations: localized("Description du problème", "Describe the issue"),
					Required:                 true,
					MaxLength:                1000,
				},
			},
		},
		{
			Name:                     "settings",
			Description:              "Configurer le bot",
			DescriptionLocalizations: commandLocalized("Configurer le bot", "Configure the bot"),
			DefaultMemberPermissions: permission(discordgo.PermissionManageServer),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:                     "captcha",
					Description:              "Vérification à l'arrivée",
					DescriptionLocalizations: localized("Vérification à l'arrivée", "Join verification"),
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:                     discordgo.ApplicationCommandOptionSubCommand,
							Name:                     "view",
							Description:              "Afficher la configuration",
							DescriptionLocalizations: localized("Afficher la configuration", "Show the configuration"),
						},
						{
							Type:                     discordgo.ApplicationCommandOptionSubCommand,
							Name:                     "enable",
							Description:              "Activer la vérification",
							DescriptionLocalizations: localized("Activer la vérification", "Enable verification"),
						},
						{
							Type:                     discordgo.ApplicationCommandOptionSubCommand,
							Name:                     "disable",
							Description:              "Désactiver la vérification",
							DescriptionLocalizations: localized("Désactiver la vérification", "Disable verification"),
						},
						{
							Type:                     discordgo.ApplicationCommandOptionSubCommand,
							Name:                     "channel",
							Description:              "Salon des messages de vérification",
							DescriptionLocalizations: localized("Salon des messages de vérification", "Verification prompt channel"),
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:                     discordgo.ApplicationCommandOptionChannel,
									Name:                     "channel",
									Description:              "Salon (vide pour automatique)",
									DescriptionLocalizations: localized("Salon (vide pour automatique)", "Channel (empty for automatic)"),
									ChannelTypes:             []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
								},
							},
						},
						{
							Type:                     discordgo.ApplicationCommandOptionSubCommand,
							Name:                     "role",
							Description:              "Rôle attribué après vérification",
							DescriptionLocalizations: localized("Rôle attribué après vérification", "Role granted after verification"),
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:                     discordgo.ApplicationCommandOptionRole,
									Name:                     "role",
									Description:              "Rôle (vide pour aucun)",
									DescriptionLocalizations: localized("Rôle (vide pour aucun)", "Role (empty for none)"),
								},
							},
						},
						{
							Type:                     discordgo.ApplicationCommandOptionSubCommand,
							Name:                     "timeout",
							Description:              "Délai de vérification en minutes (0 = illimité)",
							DescriptionLocalizations: localized("Délai de vérification en minutes (0 = illimité)", "Verification timeout in minutes (0 = unlimited)"),
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:                     discordgo.ApplicationCommandOptionInteger,
									Name:                     "minutes",
									Description:              "Minutes",
									DescriptionLocalizations: localized("Minutes", "Minutes"),
									Required:                 true,
									MinValue:                 floatPtr(0),
									MaxValue:                 maxCaptchaTimeoutMinutes,
								},
							},
						},
					},
				},
				{
					Type:                     discordgo.ApplicationCommandOptionSubCommand,
					Name:                     "language",
					Description:              "Langue des messages du bot",
					DescriptionLocalizations: localized("Langue des messages du bot", "Bot message language"),
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:                     discordgo.ApplicationCommandOptionString,
							Name:                     "value",
							Description:              "fr ou en",
							DescriptionLocalizations: localized("fr ou en", "fr or en"),
							Required:                 true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "Français", Value: "fr"},
								{Name: "English", Value: "en"},
							},
						},
					},
				},
				{
					Type:                     discordgo.ApplicationCommandOptionSubCommand,
					Name:                     "logs",
					Description:              "Salon des journaux",
					DescriptionLocalizations: localized("Salon des journaux", "Log channel"),
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:                     discordgo.ApplicationCommandOptionChannel,
							Name:                     "channel",
							Description:              "Salon (vide pour afficher)",
							DescriptionLocalizations: localized("Salon (vide pour afficher)", "Channel (empty to show)"),
							ChannelTypes:             []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
					},
				},
			},
		},
		{
			Name:                     "stats",
			Description:              "Statistiques de vérification",
			DescriptionLocalizations: commandLocalized("Statistiques de vérification", "Verification statistics"),
			DefaultMemberPermissions: permission(discordgo.PermissionManageServer),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionInteger,
					Name:                     "days",
					Description:              "Période en jours",
					DescriptionLocalizations: localized("Période en jours", "Period in days"),
					MinValue:                 floatPtr(1),
					MaxValue:                 analytics.MaxDays,
				},
			},
		},
		{
			Name:                     "help",
			Description:              "Liste des commandes",
			DescriptionLocalizations: commandLocalized("Liste des commandes", "List of commands"),
		},
		{
			Name:                     "ping",
			Description:              "Latence du bot",
			DescriptionLocalizations: commandLocalized("Latence du bot", "Bot latency"),
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}

	for _, guild := range b.session.State.Guilds {
		if guild == nil {
			continue
		}
		guildID := guild.ID
		guildCmds, err := b.session.ApplicationCommands(appID, guildID)
		if err != nil {
			continue
		}
		for _, cmd := range guildCmds {
			if _, ok := desired[cmd.Name]; ok {
				continue
			}
			_ = b.session.ApplicationCommandDelete(appID, guildID, cmd.ID)
		}
	}
	b.logger.Info("slash commands synced", zap.Int("commands", len(commands)))
	return nil
}
