package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCognito struct {
	authIn    *cip.InitiateAuthInput
	authOut   *cip.InitiateAuthOutput
	signUpIn  *cip.SignUpInput
	confirmIn *cip.ConfirmSignUpInput
	signOutIn *cip.GlobalSignOutInput
	err       error
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.authIn = in
	return f.authOut, f.err
}

func (f *fakeCognito) SignUp(_ context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	f.signUpIn = in
	return &cip.SignUpOutput{}, f.err
}

func (f *fakeCognito) ConfirmSignUp(_ context.Context, in *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	f.confirmIn = in
	return &cip.ConfirmSignUpOutput{}, f.err
}

func (f *fakeCognito) GlobalSignOut(_ context.Context, in *cip.GlobalSignOutInput, _ ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	f.signOutIn = in
	return &cip.GlobalSignOutOutput{}, f.err
}

func TestCognitoSignIn(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	api := &fakeCognito{authOut: &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:      aws.String("id"),
			AccessToken:  aws.String("access"),
			RefreshToken: aws.String("refresh"),
			ExpiresIn:    3600,
		},
	}}
	c := newCognito(api, "client", "")
	c.now = func() time.Time { return now }

	tokens, err := c.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, types.AuthFlowTypeUserPasswordAuth, api.authIn.AuthFlow)
	assert.Equal(t, "client", aws.ToString(api.authIn.ClientId))
	assert.Equal(t, "ada@example.com", api.authIn.AuthParameters["USERNAME"])
	assert.NotContains(t, api.authIn.AuthParameters, "SECRET_HASH")
	assert.Equal(t, &Tokens{
		IDToken:      "id",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(time.Hour),
	}, tokens)
}

func TestCognitoChecksPoolIssuer(t *testing.T) {
	mint := func(iss string) *cip.InitiateAuthOutput {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "iss": iss}).SignedString([]byte("k"))
		require.NoError(t, err)
		return &cip.InitiateAuthOutput{AuthenticationResult: &types.AuthenticationResultType{
			IdToken:     aws.String(raw),
			AccessToken: aws.String("access"),
		}}
	}
	assert.Equal(t, "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_abc", PoolIssuer("eu-west-1", "eu-west-1_abc"))

	api := &fakeCognito{authOut: mint(PoolIssuer("us-east-1", "us-east-1_pool"))}
	c := newCognito(api, "client", "")
	c.issuer = PoolIssuer("us-east-1", "us-east-1_pool")

	_, err := c.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	api.authOut = mint(PoolIssuer("us-east-1", "us-east-1_other"))
	_, err = c.Refresh(context.Background(), "ada@example.com", "refresh")
	require.Error(t, err)
	assert.True(t, HasCode(err, "InvalidIssuer"))

	api.authOut = &cip.InitiateAuthOutput{AuthenticationResult: &types.AuthenticationResultType{IdToken: aws.String("garbage")}}
	_, err = c.SignIn(context.Background(), "ada@example.com", "pw")
	assert.Error(t, err)
}

func TestCognitoSecretHash(t *testing.T) {
	api := &fakeCognito{}
	c := newCognito(api, "client", "secret")

	require.NoError(t, c.SignUp(context.Background(), "ada@example.com", "pw", map[string]string{"email": "ada@example.com"}))

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("ada@example.comclient"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, aws.ToString(api.signUpIn.SecretHash))
	require.Len(t, api.signUpIn.UserAttributes, 1)
	assert.Equal(t, "email", aws.ToString(api.signUpIn.UserAttributes[0].Name))
}

func TestCognitoRefreshKeepsRefreshToken(t *testing.T) {
	api := &fakeCognito{authOut: &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:     aws.String("id2"),
			AccessToken: aws.String("access2"),
			ExpiresIn:   60,
		},
	}}
	c := newCognito(api, "client", "")

	tokens, err := c.Refresh(context.Background(), "ada", "refresh")
	require.NoError(t, err)
	assert.Equal(t, types.AuthFlowTypeRefreshTokenAuth, api.authIn.AuthFlow)
	assert.Equal(t, "refresh", api.authIn.AuthParameters["REFRESH_TOKEN"])
	assert.Equal(t, "refresh", tokens.RefreshToken)
	assert.Equal(t, "id2", tokens.IDToken)
}

func TestCognitoChallengeIsAuthError(t *testing.T) {
	api := &fakeCognito{authOut: &cip.InitiateAuthOutput{ChallengeName: types.ChallengeNameTypeNewPasswordRequired}}
	c := newCognito(api, "client", "")

	_, err := c.SignIn(context.Background(), "ada", "pw")
	assert.True(t, HasCode(err, "NEW_PASSWORD_REQUIRED"))
}

func TestCognitoMapsAPIErrors(t *testing.T) {
	api := &fakeCognito{err: &smithy.GenericAPIError{Code: "CodeMismatchException", Message: "Invalid verification code provided"}}
	c := newCognito(api, "client", "")

	err := c.ConfirmSignUp(context.Background(), "ada", "000000")
	require.Error(t, err)
	assert.True(t, HasCode(err, "CodeMismatchException"))
	assert.Equal(t, "Invalid verification code provided", err.Error())
}

func TestCognitoWrapsTransportErrors(t *testing.T) {
	api := &fakeCognito{err: errors.New("dial tcp: refused")}
	c := newCognito(api, "client", "")

	err := c.SignOut(context.Background(), "access")
	require.Error(t, err)
	var ae *AuthError
	assert.False(t, errors.As(err, &ae))
	assert.Contains(t, err.Error(), "cognito sign out")
	assert.Equal(t, "access", aws.ToString(api.signOutIn.AccessToken))
}

func TestParsePrincipal(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":              "sub-1",
		"email":            "ada@example.com",
		"cognito:username": "ada",
		"exp":              exp.Unix(),
	})
	raw, err := token.SignedString([]byte("test"))
	require.NoError(t, err)

	p, gotExp, err := ParsePrincipal(raw)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "sub-1", Username: "ada", Email: "ada@example.com"}, p)
	assert.True(t, exp.Equal(gotExp))
}

func TestParsePrincipalFallsBackToEmail(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "sub-1",
		"email": "ada@example.com",
	}).SignedString([]byte("test"))
	require.NoError(t, err)

	p, exp, err := ParsePrincipal(raw)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", p.Username)
	assert.True(t, exp.IsZero())
}

func TestParsePrincipalRejectsGarbage(t *testing.T) {
	_, _, err := ParsePrincipal("not-a-token")
	assert.Error(t, err)
}

func TestTokensExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Tokens{}.Expired(now, time.Minute))
	assert.True(t, Tokens{ExpiresAt: now.Add(30 * time.Second)}.Expired(now, time.Minute))
	assert.False(t, Tokens{ExpiresAt: now.Add(time.Hour)}.Expired(now, time.Minute))
}
