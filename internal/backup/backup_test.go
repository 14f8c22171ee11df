package backup

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/diewo77/ownervalue/internal/db"
	"github.com/diewo77/ownervalue/internal/logger"
	"github.com/diewo77/ownervalue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return conn
}

func seed(t *testing.T, conn *gorm.DB) {
	t.Helper()
	prop := models.Property{Slug: "casa-blu", Nome: "Casa Blu", Citta: "Roma"}
	require.NoError(t, conn.Create(&prop).Error)

	linked := models.Prospect{Slug: "via-roma-1", Titolo: "Via Roma 1", DatiJSON: datatypes.JSON(`{"formState":{"propertySlug":"casa-blu"}}`)}
	require.NoError(t, linked.Assign(&prop))
	require.NoError(t, conn.Omit("Property").Create(&linked).Error)

	loose := models.Prospect{Slug: "via-milano-2", Titolo: "Via Milano 2"}
	require.NoError(t, conn.Create(&loose).Error)
}

func TestBuildDocument(t *testing.T) {
	conn := openDB(t, t.Name())
	seed(t, conn)

	doc, err := Build(context.Background(), conn, time.Now())
	require.NoError(t, err)
	assert.Equal(t, Counts{Properties: 1, Prospects: 2}, doc.Counts)
	require.Len(t, doc.Properties[0].Prospects, 1)
	assert.Equal(t, "via-roma-1", doc.Properties[0].Prospects[0].Slug)

	assert.Equal(t, "via-milano-2", doc.Prospects[0].Slug, "ordered by slug")
	assert.Nil(t, doc.Prospects[0].Property)
	require.NotNil(t, doc.Prospects[1].Property)
	assert.Equal(t, "Casa Blu", doc.Prospects[1].Property.Nome)
}

func TestRoundTripThroughGzipFile(t *testing.T) {
	src := openDB(t, t.Name()+"-src")
	seed(t, src)
	doc, err := Build(context.Background(), src, time.Now())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "b", FileName(time.Now())+".gz")
	require.NoError(t, WriteFile(path, doc))
	read, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Counts, read.Counts)

	dst := openDB(t, t.Name()+"-dst")
	sum, err := Restore(context.Background(), dst, read, Options{}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.PropertiesCreated)
	assert.Equal(t, 2, sum.ProspectsCreated)
	assert.Empty(t, sum.Detached)

	var p models.Prospect
	require.NoError(t, dst.Preload("Property").Where("slug = ?", "via-roma-1").First(&p).Error)
	require.NotNil(t, p.Property)
	assert.Equal(t, "casa-blu", p.Property.Slug)
	dati, ok := p.Dati()
	require.True(t, ok)
	assert.Equal(t, "Casa Blu", dati[models.KeyPropertyName])

	// a second restore updates in place
	sum, err = Restore(context.Background(), dst, read, Options{}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.PropertiesUpdated)
	assert.Equal(t, 2, sum.ProspectsUpdated)
}

func TestRestoreDryRunWritesNothing(t *testing.T) {
	conn := openDB(t, t.Name())
	doc := Document{
		Properties: []PropertyRecord{{Slug: "casa-blu", Nome: "Casa Blu"}},
		Prospects:  []ProspectRecord{{Slug: "via-roma-1", PropertySlug: "casa-blu"}},
	}
	sum, err := Restore(context.Background(), conn, doc, Options{DryRun: true}, logger.Discard())
	require.NoError(t, err)
	assert.True(t, sum.DryRun)
	assert.Equal(t, 1, sum.PropertiesCreated)
	assert.Equal(t, 1, sum.ProspectsCreated)

	var n int64
	require.NoError(t, conn.Model(&models.Property{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, conn.Model(&models.Prospect{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRestoreLinking(t *testing.T) {
	conn := openDB(t, t.Name())
	stringDati, _ := json.Marshal(`{"propertySlug":"casa-blu","formState":{"propertyName":"old"}}`)
	doc := Document{
		Properties: []PropertyRecord{{Slug: "casa-blu", Nome: "Casa Blu", Prospects: []ProspectRef{{Slug: "listed"}}}},
		Prospects: []ProspectRecord{
			{Slug: "from-dati", DatiJSON: stringDati},
			{Slug: "listed"},
			{Slug: "orphan", PropertySlug: "ghost", DatiJSON: json.RawMessage(`{"propertySlug":"ghost"}`)},
			{Slug: "casa-blu"},
		},
	}
	sum, err := Restore(context.Background(), conn, doc, Options{}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, sum.Detached)
	assert.Equal(t, []string{"prospect:casa-blu"}, sum.Skipped)
	assert.Equal(t, 3, sum.ProspectsCreated)

	load := func(key string) models.Prospect {
		var p models.Prospect
		require.NoError(t, conn.Preload("Property").Where("slug = ?", key).First(&p).Error)
		return p
	}

	p := load("from-dati")
	require.NotNil(t, p.Property)
	dati, _ := p.Dati()
	fs := dati[models.KeyFormState].(map[string]any)
	assert.Equal(t, "casa-blu", fs[models.KeyPropertySlug])
	assert.Equal(t, "Casa Blu", fs[models.KeyPropertyName])

	assert.NotNil(t, load("listed").Property)

	orphan := load("orphan")
	assert.Nil(t, orphan.PropertyID)
	dati, _ = orphan.Dati()
	assert.Equal(t, "", dati[models.KeyPropertySlug])
}

func TestRestoreTruncate(t *testing.T) {
	conn := openDB(t, t.Name())
	seed(t, conn)
	doc := Document{Properties: []PropertyRecord{{Slug: "nuova", Nome: "Nuova"}}}

	sum, err := Restore(context.Background(), conn, doc, Options{Truncate: true}, logger.Discard())
	require.NoError(t, err)
	assert.True(t, sum.Truncated)

	var slugs []string
	require.NoError(t, conn.Model(&models.Property{}).Pluck("slug", &slugs).Error)
	assert.Equal(t, []string{"nuova"}, slugs)
	var n int64
	require.NoError(t, conn.Model(&models.Prospect{}).Count(&n).Error)
	assert.Zero(t, n)
}
