// Package cognito exchanges HaiBlock account credentials for an API bearer
// token through the AWS Cognito user pool that fronts the HaiBlock API.
package cognito

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"
)

// DefaultRegion is used when neither Config.Region nor the pool id names one
const DefaultRegion = "us-east-1"

// API is the subset of the Cognito identity provider client used here
type API interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
}

// Config identifies the user pool and app client
type Config struct {
	Region     string
	UserPoolID string
	ClientID   string
	// Endpoint overrides the Cognito endpoint, e.g. a local emulator.
	// AWS_ENDPOINT_URL is used when empty.
	Endpoint string
}

// Client performs Cognito user-pool authentication
type Client struct {
	api      API
	clientID string
	logger   zerolog.Logger
}

// Tokens is the result of a successful login
type Tokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int32  `json:"expires_in"`
}

// SignUpResult reports the state of a new account
type SignUpResult struct {
	UserSub   string `json:"user_sub"`
	Confirmed bool   `json:"confirmed"`
	// Destination is where the verification code was sent, if any
	Destination string `json:"destination,omitempty"`
}

// New creates a Client backed by the AWS SDK
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.UserPoolID == "" || cfg.ClientID == "" {
		return nil, ErrMissingConfig
	}

	region := cfg.Region
	if region == "" {
		region = RegionFromPoolID(cfg.UserPoolID)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT_URL")
	}
	api := cognitoidentityprovider.NewFromConfig(awsCfg, func(o *cognitoidentityprovider.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger.Debug().
		Str("region", region).
		Str("user_pool_id", cfg.UserPoolID).
		Str("endpoint", endpoint).
		Msg("Created Cognito client")

	return NewWithAPI(api, cfg.ClientID, logger), nil
}

// NewWithAPI creates a Client over an existing Cognito API implementation
func NewWithAPI(api API, clientID string, logger zerolog.Logger) *Client {
	return &Client{
		api:      api,
		clientID: clientID,
		logger:   logger,
	}
}

// RegionFromPoolID extracts the region prefix of a pool id such as
// "eu-west-1_AbCdEf". It falls back to DefaultRegion.
func RegionFromPoolID(poolID string) string {
	region, _, ok := strings.Cut(poolID, "_")
	if !ok || region == "" {
		return DefaultRegion
	}
	return region
}

// Authenticate logs in with USER_PASSWORD_AUTH and returns the tokens. The
// access token is the bearer token for the HaiBlock API.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, classify("authentication", err)
	}

	if out.AuthenticationResult == nil {
		return nil, &AuthError{
			Op:   "authentication",
			Kind: ErrChallengeRequired,
			Err:  fmt.Errorf("challenge %s", out.ChallengeName),
		}
	}

	result := out.AuthenticationResult
	c.logger.Debug().
		Str("email", email).
		Int32("expires_in", result.ExpiresIn).
		Msg("Authenticated with Cognito")

	return &Tokens{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
		ExpiresIn:    result.ExpiresIn,
	}, nil
}

// SignUp registers a new account. Cognito e-mails a verification code that
// must be passed to ConfirmSignUp.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	out, err := c.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return nil, classify("signup", err)
	}

	result := &SignUpResult{
		UserSub:   aws.ToString(out.UserSub),
		Confirmed: out.UserConfirmed,
	}
	if out.CodeDeliveryDetails != nil {
		result.Destination = aws.ToString(out.CodeDeliveryDetails.Destination)
	}
	return result, nil
}

// ConfirmSignUp verifies a new account with the e-mailed code
func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return classify("confirmation", err)
	}
	return nil
}
