package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

const discordAPI = "https://discord.com/api/v10"

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type DiscordGuild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// Manageable reports whether the user owns the guild or holds Manage Server.
func (g DiscordGuild) Manageable() bool {
	if g.Owner {
		return true
	}
	perms, err := strconv.ParseInt(g.Permissions, 10, 64)
	if err != nil {
		return false
	}
	return perms&int64(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}

// IdentityProvider runs the Discord authorization code flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (DiscordUser, []DiscordGuild, error)
}

type DiscordOAuth struct {
	config  *oauth2.Config
	apiBase string
}

func NewDiscordOAuth(clientID, clientSecret, redirectURL string) *DiscordOAuth {
	return &DiscordOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify", "guilds"},
			Endpoint:     discordEndpoint,
		},
		apiBase: discordAPI,
	}
}

func (d *DiscordOAuth) AuthCodeURL(state string) string {
	return d.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

func (d *DiscordOAuth) Exchange(ctx context.Context, code string) (DiscordUser, []DiscordGuild, error) {
	token, err := d.config.Exchange(ctx, code)
	if err != nil {
		return DiscordUser{}, nil, fmt.Errorf("exchange code: %w", err)
	}
	client := d.config.Client(ctx, token)

	var user DiscordUser
	if err := d.get(ctx, client, "/users/@me", &user); err != nil {
		return DiscordUser{}, nil, err
	}
	var guilds []DiscordGuild
	if err := d.get(ctx, client, "/users/@me/guilds", &guilds); err != nil {
		return DiscordUser{}, nil, err
	}
	return user, guilds, nil
}

func (d *DiscordOAuth) get(ctx context.Context, client *http.Client, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// managedGuildIDs keeps the guilds the user may administer.
func managedGuildIDs(guilds []DiscordGuild) []string {
	ids := make([]string, 0, len(guilds))
	for _, g := range guilds {
		if g.Manageable() {
			ids = append(ids, g.ID)
		}
	}
	return ids
}
