package bot

var messages = map[string]map[string]string{
	"fr": {
		"footer_brand": "RudyProtect",
		"error_title":  "Erreur",
		"help_title":   "📖 Commandes RudyProtect",
		"ping_title":   "🏓 Pong",
		"ping_desc":    "Latence : **%d ms**",

		"verify_success":    "✅ Vous avez été vérifié avec succès !",
		"verify_wrong_user": "❌ Cette vérification ne vous est pas destinée.",
		"verify_expired":    "❌ Cette vérification a expiré ou n'existe plus.",
		"verify_error":      "❌ Une erreur est survenue pendant la vérification.",

		"leave_title":             "👋 Membre parti",
		"leave_desc":              "%s a quitté le serveur.",
		"leave_unverified_title":  "👋 Membre parti (non vérifié)",
		"leave_unverified_desc":   "%s a quitté le serveur sans être vérifié.",
		"leave_status_unverified": "Non vérifié",
		"leave_status_abandoned":  "Vérification abandonnée",
		"leave_status_expired":    "Expulsé (délai dépassé)",
		"leave_status_unknown":    "Inconnu",
		"leave_messages_kept":     "Conservés",
		"purge_disabled":          "Suppression désactivée",
		"messages_deleted_count":  "%d message(s)",

		"audit_title":   "📋 Journal d'audit",
		"audit_level":   "Niveau",
		"audit_details": "Détails",

		"event_captcha_verified":       "Vérification réussie",
		"event_captcha_expired":        "Vérification expirée",
		"event_captcha_abandoned":      "Vérification abandonnée",
		"event_captcha_config_updated": "Configuration captcha modifiée",
		"event_member_ban":             "Membre banni",
		"event_member_kick":            "Membre expulsé",
		"event_member_mute":            "Membre rendu muet",
		"event_blacklist_add":          "Ajout à la liste noire",
		"event_blacklist_remove":       "Retrait de la liste noire",
		"event_blacklist_update":       "Liste noire modifiée",
		"event_settings_language":      "Langue modifiée",
		"event_settings_logs":          "Salon des journaux modifié",

		"field_user":             "Utilisateur",
		"field_moderator":        "Modérateur",
		"field_reason":           "Raison",
		"field_status":           "Statut",
		"field_messages":         "Messages",
		"field_messages_deleted": "Messages supprimés",
		"field_event":            "Événement",
		"field_count":            "Nombre",
		"field_channel":          "Salon",
		"field_role":             "Rôle",
		"field_timeout":          "Délai",
		"field_duration":         "Durée",
		"field_expires":          "Fin",
		"field_delete_days":      "Jours supprimés",
		"field_notified":         "Notifié en MP",
		"field_value":            "Valeur",
		"field_added_by":         "Ajouté par",
		"field_added_at":         "Ajouté le",
		"field_type":             "Type",
		"field_id":               "Numéro",

		"value_yes":      "Oui",
		"value_no":       "Non",
		"value_none":     "Aucun",
		"value_auto":     "Automatique",
		"value_enabled":  "Activée",
		"value_disabled": "Désactivée",
		"value_not_set":  "Non défini",
		"value_system":   "Système",

		"error_only_guild":       "Cette commande n'est disponible que sur un serveur.",
		"error_user_ctx":         "Impossible de déterminer l'utilisateur.",
		"error_failed":           "L'opération a échoué.",
		"error_no_subcommand":    "Sous-commande manquante.",
		"error_unknown":          "Action inconnue.",
		"error_self_target":      "Vous ne pouvez pas vous cibler vous-même.",
		"error_owner_target":     "Vous ne pouvez pas cibler le propriétaire du serveur.",
		"error_not_member":       "Cet utilisateur n'est pas membre du serveur.",
		"error_hierarchy":        "Ce membre a un rôle égal ou supérieur au vôtre.",
		"error_invalid_duration": "La durée doit être comprise entre 1 et 40320 minutes.",
		"error_invalid_user_id":  "Identifiant Discord invalide (17 à 19 chiffres).",
		"error_invalid_mac":      "Adresse MAC invalide (format AA:BB:CC:DD:EE:FF).",

		"moderation_ban_title":  "🔨 Bannissement",
		"moderation_ban_done":   "Le membre a été banni.",
		"moderation_kick_title": "👢 Expulsion",
		"moderation_kick_done":  "Le membre a été expulsé.",
		"moderation_mute_title": "🔇 Mise en sourdine",
		"moderation_mute_done":  "Le membre a été rendu muet.",

		"blacklist_title":       "🚫 Liste noire",
		"blacklist_list_title":  "🚫 Liste noire (%s)",
		"blacklist_empty":       "La liste noire est vide.",
		"blacklist_exists":      "Cette entrée est déjà dans la liste noire.",
		"blacklist_not_found":   "Cette entrée n'est pas dans la liste noire.",
		"blacklist_add_done":    "Entrée ajoutée à la liste noire.",
		"blacklist_remove_done": "Entrée retirée de la liste noire.",
		"blacklist_update_done": "Raison mise à jour.",
		"blacklist_view_done":   "Entrée de la liste noire.",

		"report_title":       "📋 Signalement",
		"report_sent":        "Merci ! Votre signalement a été transmis au développeur.",
		"report_blacklisted": "Vous ne pouvez pas envoyer de signalement.",
		"report_invalid":     "Signalement invalide : précisez le type et la description.",

		"settings_title":            "⚙️ Paramètres",
		"settings_language_updated": "La langue a été mise à jour.",
		"logs_title":                "📜 Salon des journaux",
		"logs_current":              "Salon des journaux actuel.",
		"logs_updated":              "Salon des journaux mis à jour.",
		"captcha_settings_title":    "🔐 Vérification captcha",
		"captcha_settings_current":  "Configuration actuelle.",
		"captcha_settings_updated":  "Configuration mise à jour.",

		"stats_title":     "📊 Statistiques de vérification",
		"stats_desc":      "Sur les %d derniers jours.",
		"stats_created":   "Créées",
		"stats_verified":  "Réussies",
		"stats_expired":   "Expirées",
		"stats_abandoned": "Abandonnées",
		"stats_rate":      "Taux de réussite",
	},
	"en": {
		"footer_brand": "RudyProtect",
		"error_title":  "Error",
		"help_title":   "📖 RudyProtect commands",
		"ping_title":   "🏓 Pong",
		"ping_desc":    "Latency: **%d ms**",

		"verify_success":    "✅ You have been verified successfully!",
		"verify_wrong_user": "❌ This verification is not meant for you.",
		"verify_expired":    "❌ This verification has expired or no longer exists.",
		"verify_error":      "❌ Something went wrong during verification.",

		"leave_title":             "👋 Member left",
		"leave_desc":              "%s left the server.",
		"leave_unverified_title":  "👋 Member left (unverified)",
		"leave_unverified_desc":   "%s left the server without being verified.",
		"leave_status_unverified": "Unverified",
		"leave_status_abandoned":  "Verification abandoned",
		"leave_status_expired":    "Kicked (timed out)",
		"leave_status_unknown":    "Unknown",
		"leave_messages_kept":     "Kept",
		"purge_disabled":          "Deletion disabled",
		"messages_deleted_count":  "%d message(s)",

		"audit_title":   "📋 Audit log",
		"audit_level":   "Level",
		"audit_details": "Details",

		"event_captcha_verified":       "Verification passed",
		"event_captcha_expired":        "Verification expired",
		"event_captcha_abandoned":      "Verification abandoned",
		"event_captcha_config_updated": "Captcha settings changed",
		"event_member_ban":             "Member banned",
		"event_member_kick":            "Member kicked",
		"event_member_mute":            "Member timed out",
		"event_blacklist_add":          "Blacklist entry added",
		"event_blacklist_remove":       "Blacklist entry removed",
		"event_blacklist_update":       "Blacklist entry updated",
		"event_settings_language":      "Language changed",
		"event_settings_logs":          "Log channel changed",

		"field_user":             "User",
		"field_moderator":        "Moderator",
		"field_reason":           "Reason",
		"field_status":           "Status",
		"field_messages":         "Messages",
		"field_messages_deleted": "Messages deleted",
		"field_event":            "Event",
		"field_count":            "Count",
		"field_channel":          "Channel",
		"field_role":             "Role",
		"field_timeout":          "Timeout",
		"field_duration":         "Duration",
		"field_expires":          "Ends",
		"field_delete_days":      "Days deleted",
		"field_notified":         "Notified by DM",
		"field_value":            "Value",
		"field_added_by":         "Added by",
		"field_added_at":         "Added on",
		"field_type":             "Type",
		"field_id":               "Number",

		"value_yes":      "Yes",
		"value_no":       "No",
		"value_none":     "None",
		"value_auto":     "Automatic",
		"value_enabled":  "Enabled",
		"value_disabled": "Disabled",
		"value_not_set":  "Not set",
		"value_system":   "System",

		"error_only_guild":       "This command is only available in a server.",
		"error_user_ctx":         "Could not determine the user.",
		"error_failed":           "The operation failed.",
		"error_no_subcommand":    "Missing subcommand.",
		"error_unknown":          "Unknown action.",
		"error_self_target":      "You cannot target yourself.",
		"error_owner_target":     "You cannot target the server owner.",
		"error_not_member":       "This user is not a member of the server.",
		"error_hierarchy":        "This member has a role equal to or above yours.",
		"error_invalid_duration": "The duration must be between 1 and 40320 minutes.",
		"error_invalid_user_id":  "Invalid Discord ID (17 to 19 digits).",
		"error_invalid_mac":      "Invalid MAC address (format AA:BB:CC:DD:EE:FF).",

		"moderation_ban_title":  "🔨 Ban",
		"moderation_ban_done":   "The member has been banned.",
		"moderation_kick_title": "👢 Kick",
		"moderation_kick_done":  "The member has been kicked.",
		"moderation_mute_title": "🔇 Timeout",
		"moderation_mute_done":  "The member has been timed out.",

		"blacklist_title":       "🚫 Blacklist",
		"blacklist_list_title":  "🚫 Blacklist (%s)",
		"blacklist_empty":       "The blacklist is empty.",
		"blacklist_exists":      "This entry is already blacklisted.",
		"blacklist_not_found":   "This entry is not blacklisted.",
		"blacklist_add_done":    "Entry added to the blacklist.",
		"blacklist_remove_done": "Entry removed from the blacklist.",
		"blacklist_update_done": "Reason updated.",
		"blacklist_view_done":   "Blacklist entry.",

		"report_title":       "📋 Report",
		"report_sent":        "Thanks! Your report was forwarded to the developer.",
		"report_blacklisted": "You are not allowed to send reports.",
		"report_invalid":     "Invalid report: give a type and a description.",

		"settings_title":            "⚙️ Settings",
		"settings_language_updated": "The language has been updated.",
		"logs_title":                "📜 Log channel",
		"logs_current":              "Current log channel.",
		"logs_updated":              "Log channel updated.",
		"captcha_settings_title":    "🔐 Captcha verification",
		"captcha_settings_current":  "Current configuration.",
		"captcha_settings_updated":  "Configuration updated.",

		"stats_title":     "📊 Verification statistics",
		"stats_desc":      "Over the last %d days.",
		"stats_created":   "Created",
		"stats_verified":  "Passed",
		"stats_expired":   "Expired",
		"stats_abandoned": "Abandoned",
		"stats_rate":      "Success rate",
	},
}

// translate falls back to French, then to the key itself.
func translate(lang, key string) string {
	if table, ok := messages[lang]; ok {
		if value, ok := table[key]; ok {
			return value
		}
	}
	if value, ok := messages["fr"][key]; ok {
		return value
	}
	return key
}

func (b *Bot) t(lang, key string) string {
	return translate(lang, key)
}
