package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// LoadSSM reads every parameter stored under prefix in AWS SSM Parameter Store and
// returns them keyed by their last path segment, so /memevote/prod/JWT_SECRET becomes
// JWT_SECRET. SecureString parameters are decrypted.
func LoadSSM(ctx context.Context, client ssm.GetParametersByPathAPIClient, prefix string) (map[string]string, error) {
	if prefix == "" {
		return nil, fmt.Errorf("ssm parameter prefix cannot be empty")
	}

	values := make(map[string]string)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error reading ssm parameters under %s: %w", prefix, err)
		}
		for _, param := range page.Parameters {
			name := aws.ToString(param.Name)
			key := path.Base(strings.TrimSuffix(name, "/"))
			if key == "" || key == "." || key == "/" {
				continue
			}
			values[key] = aws.ToString(param.Value)
		}
	}

	return values, nil
}
