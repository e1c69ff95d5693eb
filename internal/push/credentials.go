package push

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// Credentials is a loaded service account: the project messages are sent
// under and a token source that caches access tokens until expiry.
type Credentials struct {
	ProjectID   string
	TokenSource oauth2.TokenSource
}

// LoadCredentials reads a service-account JSON file.
func LoadCredentials(ctx context.Context, path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return CredentialsFromJSON(ctx, data)
}

func CredentialsFromJSON(ctx context.Context, data []byte) (*Credentials, error) {
	creds, err := google.CredentialsFromJSON(ctx, data, MessagingScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if creds.ProjectID == "" {
		return nil, fmt.Errorf("credentials have no project_id")
	}
	return &Credentials{ProjectID: creds.ProjectID, TokenSource: creds.TokenSource}, nil
}
