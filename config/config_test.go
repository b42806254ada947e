package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

func TestGetters(t *testing.T) {
	c := map[string]string{
		"PORT":    "9090",
		"BAD_INT": "nine",
		"FLAG":    "true",
		"EMPTY":   "",
		"ORIGINS": "http://a.test, ,http://b.test",
	}

	if got := GetString(c, "EMPTY", "fallback"); got != "fallback" {
		t.Errorf("GetString(EMPTY) = %q, want fallback", got)
	}
	if got := GetInt(c, "PORT", 8080); got != 9090 {
		t.Errorf("GetInt(PORT) = %d, want 9090", got)
	}
	if got := GetInt(c, "BAD_INT", 7); got != 7 {
		t.Errorf("GetInt(BAD_INT) = %d, want default 7", got)
	}
	if !GetBool(c, "FLAG", false) {
		t.Error("GetBool(FLAG) = false, want true")
	}
	if GetBool(nil, "FLAG", false) {
		t.Error("GetBool on nil config should return the default")
	}

	origins := GetStrings(c, "ORIGINS")
	if len(origins) != 2 || origins[0] != "http://a.test" || origins[1] != "http://b.test" {
		t.Errorf("GetStrings(ORIGINS) = %v", origins)
	}
}

func TestSplit(t *testing.T) {
	key, value := split("DSN=host=db user=x")
	if key != "DSN" || value != "host=db user=x" {
		t.Errorf("split kept %q=%q", key, value)
	}
	key, value = split("NOVALUE")
	if key != "NOVALUE" || value != "" {
		t.Errorf("split kept %q=%q", key, value)
	}
}

func TestMerge(t *testing.T) {
	merged := Merge(map[string]string{"A": "1", "B": "2"}, map[string]string{"B": "3", "C": "4"})
	if merged["A"] != "1" || merged["B"] != "3" || merged["C"] != "4" {
		t.Errorf("Merge = %v", merged)
	}
}

type fakeSSM struct {
	pages [][]types.Parameter
	calls int
	err   error
}

func (f *fakeSSM) GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("expected decryption to be requested")
	}
	out := &ssm.GetParametersByPathOutput{Parameters: f.pages[f.calls]}
	f.calls++
	if f.calls < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestLoadSSM(t *testing.T) {
	client := &fakeSSM{pages: [][]types.Parameter{
		{{Name: aws.String("/memevote/prod/JWT_SECRET"), Value: aws.String("s3cret")}},
		{{Name: aws.String("/memevote/prod/db/DB_PASSWORD"), Value: aws.String("pw")}},
	}}

	values, err := LoadSSM(context.Background(), client, "/memevote/prod")
	if err != nil {
		t.Fatalf("LoadSSM returned error: %v", err)
	}
	if values["JWT_SECRET"] != "s3cret" || values["DB_PASSWORD"] != "pw" {
		t.Errorf("LoadSSM = %v", values)
	}
	if client.calls != 2 {
		t.Errorf("expected both pages to be read, got %d calls", client.calls)
	}
}

func TestLoadSSMErrors(t *testing.T) {
	if _, err := LoadSSM(context.Background(), &fakeSSM{}, ""); err == nil {
		t.Error("expected error for empty prefix")
	}
	if _, err := LoadSSM(context.Background(), &fakeSSM{err: errors.New("boom")}, "/x"); err == nil {
		t.Error("expected error to propagate from the client")
	}
}
