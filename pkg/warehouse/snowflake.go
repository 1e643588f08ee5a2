package warehouse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BartekS5/npiload/pkg/models"
)

// Snowflake loads local files through a temporary internal stage (PUT), and
// object-store files through a named external stage pointing at the bucket.
// StagePath is the key prefix already part of the external stage URL.
type Snowflake struct {
	StageName     string
	ExternalStage string
	StagePath     string
}

const snowflakeCSVFormat = `FILE_FORMAT = (TYPE = 'CSV' FIELD_OPTIONALLY_ENCLOSED_BY = '"' SKIP_HEADER = 1)`

func (s *Snowflake) Name() string { return "snowflake" }

func (s *Snowflake) Count(table string) string { return countSQL(table) }

func (s *Snowflake) Truncate(table string) string { return "TRUNCATE TABLE " + table }

func (s *Snowflake) Stage(file *models.StagedFile) ([]string, error) {
	if file == nil {
		return nil, fmt.Errorf("snowflake: nothing staged")
	}
	if file.Kind == models.StagedRemote {
		if s.ExternalStage == "" {
			return nil, fmt.Errorf("snowflake: loading %s needs an external stage", file.Location())
		}
		return nil, nil
	}
	if file.Path == "" {
		return nil, fmt.Errorf("snowflake: staged file has no path")
	}

	path := filepath.ToSlash(file.Path)
	return []string{
		"CREATE OR REPLACE TEMPORARY STAGE " + s.StageName,
		fmt.Sprintf("PUT %s @%s AUTO_COMPRESS = TRUE OVERWRITE = TRUE", quoteLiteral("file://"+path), s.StageName),
	}, nil
}

func (s *Snowflake) Copy(table string, file *models.StagedFile) (string, error) {
	if file == nil {
		return "", fmt.Errorf("snowflake: nothing staged")
	}
	if file.Kind == models.StagedRemote {
		if s.ExternalStage == "" {
			return "", fmt.Errorf("snowflake: loading %s needs an external stage", file.Location())
		}
		key, err := s.stageRelative(file.Key)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("COPY INTO %s FROM @%s FILES = (%s) %s",
			table, s.ExternalStage, quoteLiteral(key), snowflakeCSVFormat), nil
	}
	return fmt.Sprintf("COPY INTO %s FROM @%s %s", table, s.StageName, snowflakeCSVFormat), nil
}

// stageRelative returns key relative to the external stage location. FILES
// names are resolved against the stage URL, so a prefix the URL already
// carries must not appear twice.
func (s *Snowflake) stageRelative(key string) (string, error) {
	dir := strings.Trim(s.StagePath, "/")
	if dir == "" {
		return key, nil
	}
	rel := strings.TrimPrefix(key, dir+"/")
	if rel == key || rel == "" {
		return "", fmt.Errorf("snowflake: object %s is not under external stage path %s/", key, dir)
	}
	return rel, nil
}
