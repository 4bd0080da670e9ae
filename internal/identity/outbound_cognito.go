package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// cognitoAPI is the subset of the user pool client Link calls.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Cognito signs users in against a Cognito user pool app client.
type Cognito struct {
	api          cognitoAPI
	clientID     string
	clientSecret string
	// issuer, when set, must match the iss claim of every ID token.
	issuer       string
	now          func() time.Time
}

// NewCognito builds a Cognito provider for the given region and app client.
// The user pool client APIs are unsigned, so no AWS credentials are needed.
// With a userPoolID, ID tokens issued by any other pool are refused.
func NewCognito(ctx context.Context, region, userPoolID, clientID, clientSecret string) (*Cognito, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	c := newCognito(cip.NewFromConfig(awsCfg), clientID, clientSecret)
	if userPoolID != "" {
		c.issuer = PoolIssuer(region, userPoolID)
	}
	return c, nil
}

// PoolIssuer is the iss claim of tokens minted by a Cognito user pool.
func PoolIssuer(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

func newCognito(api cognitoAPI, clientID, clientSecret string) *Cognito {
	return &Cognito{
		api:          api,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

func (c *Cognito) SignIn(ctx context.Context, username, password string) (*Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: c.authParameters(username, map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		}),
	})
	if err != nil {
		return nil, mapError("sign in", err)
	}
	return c.tokens(out, "")
}

func (c *Cognito) SignUp(ctx context.Context, username, password string, attributes map[string]string) error {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]types.AttributeType, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, types.AttributeType{
			Name:  aws.String(name),
			Value: aws.String(attributes[name]),
		})
	}

	_, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(c.clientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		UserAttributes: attrs,
		SecretHash:     c.secretHash(username),
	})
	if err != nil {
		return mapError("sign up", err)
	}
	return nil
}

func (c *Cognito) ConfirmSignUp(ctx context.Context, username, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		SecretHash:       c.secretHash(username),
	})
	if err != nil {
		return mapError("confirm sign up", err)
	}
	return nil
}

func (c *Cognito) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return mapError("sign out", err)
	}
	return nil
}

// Refresh trades a refresh token for fresh ID and access tokens. Cognito does
// not rotate the refresh token, so the old one is carried over.
func (c *Cognito) Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: c.authParameters(username, map[string]string{
			"REFRESH_TOKEN": refreshToken,
		}),
	})
	if err != nil {
		return nil, mapError("refresh", err)
	}
	return c.tokens(out, refreshToken)
}

func (c *Cognito) tokens(out *cip.InitiateAuthOutput, refreshToken string) (*Tokens, error) {
	res := out.AuthenticationResult
	if res == nil {
		return nil, &AuthError{
			Code:    string(out.ChallengeName),
			Message: fmt.Sprintf("sign-in step %s is not supported", out.ChallengeName),
		}
	}

	t := &Tokens{
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
	}
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	if c.issuer != "" {
		iss, err := tokenIssuer(t.IDToken)
		if err != nil {
			return nil, err
		}
		if iss != c.issuer {
			return nil, &AuthError{Code: "InvalidIssuer", Message: "token was issued by another user pool"}
		}
	}
	if res.ExpiresIn > 0 {
		t.ExpiresAt = c.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	return t, nil
}

func (c *Cognito) authParameters(username string, params map[string]string) map[string]string {
	if hash := c.secretHash(username); hash != nil {
		params["SECRET_HASH"] = *hash
	}
	return params
}

// secretHash is required by app clients that have a client secret.
func (c *Cognito) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(username + c.clientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func mapError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &AuthError{
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}
	return fmt.Errorf("cognito %s: %w", op, err)
}
