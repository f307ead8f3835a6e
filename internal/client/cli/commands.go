package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/client/client"
	"github.com/dmitrijs2005/gophaccount/internal/common"
)

// getSimpleText, getPassword and getYesNo are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getYesNo      = GetYesNo
)

var errInvalidGender = errors.New("gender must be m, f or empty")

func parseGender(v string) (int16, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return 0, nil
	case "m", "male":
		return 1, nil
	case "f", "female":
		return 2, nil
	default:
		return 0, errInvalidGender
	}
}

func genderName(g int16) string {
	switch g {
	case 1:
		return "male"
	case 2:
		return "female"
	default:
		return "unknown"
	}
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// askSecret reads a password and returns it as a string; the raw bytes are
// wiped before returning.
func (a *App) askSecret(prompt string) (string, error) {
	pw, err := getPassword(a.out, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

type profileInput struct {
	fullName string
	birthday string
	phone    string
	gender   int16
}

func (a *App) askProfile() (*profileInput, error) {
	fullName, err := a.ask("Enter full name")
	if err != nil {
		return nil, err
	}
	birthday, err := a.ask("Enter birthday (YYYY-MM-DD, empty to skip)")
	if err != nil {
		return nil, err
	}
	phone, err := a.ask("Enter phone (empty to skip)")
	if err != nil {
		return nil, err
	}
	g, err := a.ask("Enter gender (m/f, empty to skip)")
	if err != nil {
		return nil, err
	}
	gender, err := parseGender(g)
	if err != nil {
		return nil, err
	}
	return &profileInput{fullName: fullName, birthday: birthday, phone: phone, gender: gender}, nil
}

func (a *App) printUser(u *api.User) {
	fmt.Fprintf(a.out, "Identity:  %s\n", u.Identity)
	fmt.Fprintf(a.out, "Email:     %s\n", u.Email)
	fmt.Fprintf(a.out, "Name:      %s\n", u.FullName)
	if u.Birthday != "" {
		fmt.Fprintf(a.out, "Birthday:  %s\n", u.Birthday)
	}
	if u.Phone != "" {
		fmt.Fprintf(a.out, "Phone:     %s\n", u.Phone)
	}
	fmt.Fprintf(a.out, "Gender:    %s\n", genderName(u.Gender))
	if u.Avatar != "" {
		fmt.Fprintf(a.out, "Avatar:    %s (%s)\n", u.Avatar, u.AvatarMimeType)
	}
	fmt.Fprintf(a.out, "Status:    %s\n", u.Status)
	if u.Social {
		fmt.Fprintln(a.out, "Social:    yes")
	}
}

// Register prompts for the account details and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	p, err := a.askProfile()
	if err != nil {
		return err
	}
	password, err := a.askSecret("Enter password")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.accounts.Register(ctx, &api.SignUpRequest{
		Email:    email,
		FullName: p.fullName,
		Password: password,
		Birthday: p.birthday,
		Phone:    p.phone,
		Gender:   p.gender,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s, you can log in now\n", u.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	password, err := a.askSecret("Enter password")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.accounts.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.setEmail(u.Email)
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

// LoginSocial exchanges an identity-provider token for a session.
func (a *App) LoginSocial(ctx context.Context) error {
	assertion, err := a.ask("Paste identity provider token")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.accounts.LoginSocial(ctx, assertion)
	if err != nil {
		return err
	}

	a.setEmail(u.Email)
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	err := a.accounts.Logout(ctx)
	a.setEmail("")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) GlobalLogout(ctx context.Context) error {
	ok, err := getYesNo(a.reader, "End sessions on all devices?", a.out)
	if err != nil || !ok {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	err = a.accounts.GlobalLogout(ctx)
	a.setEmail("")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out everywhere")
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.accounts.Profile(ctx)
	if err != nil {
		return a.sessionGone(err)
	}
	a.printUser(u)
	return nil
}

func (a *App) UpdateProfile(ctx context.Context) error {
	p, err := a.askProfile()
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.accounts.UpdateProfile(ctx, &api.UpdateProfileRequest{
		FullName: p.fullName,
		Birthday: p.birthday,
		Phone:    p.phone,
		Gender:   p.gender,
	})
	if err != nil {
		return a.sessionGone(err)
	}
	a.printUser(u)
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := a.askSecret("Enter current password")
	if err != nil {
		return err
	}
	newPassword, err := a.askSecret("Enter new password")
	if err != nil {
		return err
	}
	confirmPassword, err := a.askSecret("Repeat new password")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	if err := a.accounts.ChangePassword(ctx, oldPassword, newPassword, confirmPassword); err != nil {
		return a.sessionGone(err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// ChangeStatus activates or deactivates the account with the given identity.
func (a *App) ChangeStatus(ctx context.Context) error {
	identity, err := a.ask("Enter account identity")
	if err != nil {
		return err
	}
	active, err := getYesNo(a.reader, "Should the account be active?", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.accounts.ChangeStatus(ctx, identity, active)
	if err != nil {
		return a.sessionGone(err)
	}
	fmt.Fprintf(a.out, "Account %s is now %s\n", u.Identity, u.Status)
	return nil
}

func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	password, err := a.accounts.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Your new password: %s\n", password)
	return nil
}

func (a *App) UploadAvatar(ctx context.Context) error {
	path, err := a.ask("Enter path to image")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.accounts.UploadAvatar(ctx, path)
	if err != nil {
		return a.sessionGone(err)
	}
	fmt.Fprintf(a.out, "Avatar stored at %s\n", u.Avatar)
	return nil
}

// CheckSession reports whether the server still accepts the access token.
func (a *App) CheckSession(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	ok, err := a.accounts.CheckSession(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(a.out, "Session is valid")
	} else {
		fmt.Fprintln(a.out, "Access token is not valid (it is refreshed on the next call)")
	}
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	if err := a.accounts.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "Server is reachable")
	return nil
}

// sessionGone logs the user out of the prompt when the server rejected the
// session for good.
func (a *App) sessionGone(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		a.setEmail("")
		return fmt.Errorf("%w, please log in again", err)
	}
	return err
}
