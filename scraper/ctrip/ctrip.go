package ctrip

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/chromedp/chromedp"
	"github.com/mozillazg/go-pinyin"

	"attraction-insights/config"
	"attraction-insights/models"
	"attraction-insights/utils"
)

const (
	baseURL = "https://you.ctrip.com"
	source  = "携程"
)

// DefaultCities are scraped when no city is given.
var DefaultCities = []string{"北京", "上海", "广州", "深圳", "杭州"}

// Scraper collects sight listings from Ctrip's per-city list pages.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	pool    *utils.WorkerPool
	visited *utils.KeySet
	retry   *utils.RetryConfig

	mu      sync.Mutex
	records []models.RawRecord
}

// New creates a ready-to-use Ctrip Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		pool:    utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited: utils.NewKeySet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// sightCard is one entry of a list page as extracted in the browser.
type sightCard struct {
	Name        string `json:"name"`
	Link        string `json:"link"`
	Rating      string `json:"rating"`
	Price       string `json:"price"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// sightDetail holds the fields only present on a sight's own page.
type sightDetail struct {
	OpeningHours string `json:"opening_hours"`
	Duration     string `json:"duration"`
	Tips         string `json:"tips"`
	ImageURL     string `json:"image_url"`
}

// Scrape walks pages 1..pages of every city's list and returns the raw
// records, tagged with the source. A failing page ends that city only.
func (s *Scraper) Scrape(ctx context.Context, cities []string, pages int) ([]models.RawRecord, error) {
	if len(cities) == 0 {
		cities = DefaultCities
	}
	if pages < 1 {
		pages = 1
	}
	s.logger.Info("[ctrip] Starting scrape: %d cities, %d pages each", len(cities), pages)

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[ctrip] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "zh-CN"),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	for _, city := range cities {
		slug := CitySlug(city)
		if slug == "" {
			s.logger.Warn("[ctrip] Cannot build a slug for %q, skipping", city)
			continue
		}

		for page := 1; page <= pages; page++ {
			if err := ctx.Err(); err != nil {
				return s.snapshot(), err
			}
			pageURL := ListURL(slug, page)
			s.logger.Info("[ctrip] %s page %d: %s", city, page, pageURL)

			records, err := s.scrapePage(browserCtx, pageURL)
			if err != nil {
				s.logger.Error("[ctrip] %s page %d failed: %v", city, page, err)
				break
			}
			if len(records) == 0 {
				s.logger.Warn("[ctrip] %s page %d returned no sights, stopping", city, page)
				break
			}

			s.enrich(browserCtx, records)

			s.mu.Lock()
			s.records = append(s.records, records...)
			total := len(s.records)
			s.mu.Unlock()
			s.logger.Info("[ctrip] %s page %d done, %d sights so far", city, page, total)

			time.Sleep(time.Duration(s.cfg.RateLimitMs) * time.Millisecond)
		}
	}

	out := s.snapshot()
	s.logger.Info("[ctrip] Scrape complete, %d raw records", len(out))
	return out, nil
}

func (s *Scraper) snapshot() []models.RawRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RawRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Scraper) scrapePage(browserCtx context.Context, pageURL string) ([]models.RawRecord, error) {
	var records []models.RawRecord

	err := s.retry.Do(browserCtx, "list-page", func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		var cards []sightCard
		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(listScript, &cards),
		)
		if err != nil {
			return fmt.Errorf("chromedp list extract: %w", err)
		}

		records = records[:0]
		for _, c := range cards {
			rec := toRawRecord(c)
			if rec == nil {
				continue
			}
			if link := rec[models.FieldLink]; link != "" && !s.visited.Add(link) {
				s.logger.Debug("[ctrip] Skipping duplicate: %s", link)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// enrich fills opening hours, duration and tips from each sight's page.
// Failures leave the record as scraped from the list.
func (s *Scraper) enrich(browserCtx context.Context, records []models.RawRecord) {
	var mu sync.Mutex
	for _, rec := range records {
		link := rec[models.FieldLink]
		if link == "" {
			continue
		}
		s.pool.Submit(func() {
			d, err := s.scrapeDetail(browserCtx, link)
			if err != nil {
				s.logger.Warn("[ctrip] Detail page failed for %s: %v", link, err)
				return
			}
			mu.Lock()
			applyDetail(rec, d)
			mu.Unlock()
		})
	}
	s.pool.Wait()
}

func (s *Scraper) scrapeDetail(browserCtx context.Context, link string) (sightDetail, error) {
	var d sightDetail
	err := s.retry.Do(browserCtx, "detail-page", func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, 45*time.Second)
		defer cancelTimeout()

		if err := chromedp.Run(ctx,
			chromedp.Navigate(link),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(detailScript, &d),
		); err != nil {
			return fmt.Errorf("chromedp detail extract: %w", err)
		}
		return nil
	})
	return d, err
}

// toRawRecord maps a list card to a raw record; cards without a name are
// dropped. Relative links are resolved against the site root.
func toRawRecord(c sightCard) models.RawRecord {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil
	}
	return models.RawRecord{
		models.FieldName:        name,
		models.FieldLink:        resolveLink(c.Link),
		models.FieldRating:      strings.TrimSpace(c.Rating),
		models.FieldPrice:       strings.TrimSpace(c.Price),
		models.FieldAddress:     strings.TrimSpace(c.Address),
		models.FieldDescription: strings.TrimSpace(c.Description),
		models.FieldSource:      source,
	}
}

func applyDetail(rec models.RawRecord, d sightDetail) {
	set := func(field, v string) {
		if v = strings.TrimSpace(v); v != "" {
			rec[field] = v
		}
	}
	set(models.FieldOpeningHours, d.OpeningHours)
	set(models.FieldDuration, d.Duration)
	set(models.FieldTips, d.Tips)
	set(models.FieldImageURL, resolveLink(d.ImageURL))
}

func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, _ := url.Parse(baseURL)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// CitySlug turns a city name into the pinyin path segment of its list
// page: "北京" and "北京市" give "beijing". Latin input is lowercased.
func CitySlug(city string) string {
	city = strings.TrimSpace(city)
	city = strings.TrimSuffix(city, "市")

	var ascii strings.Builder
	for _, r := range city {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			ascii.WriteRune(unicode.ToLower(r))
		}
	}
	if ascii.Len() > 0 {
		return ascii.String()
	}
	return strings.Join(pinyin.LazyPinyin(city, pinyin.NewArgs()), "")
}

// ListURL is the address of one page of a city's sight list.
func ListURL(slug string, page int) string {
	return fmt.Sprintf("%s/sight/%s/s0-p%d.html", baseURL, slug, page)
}

// findChromeBinary locates Chrome/Chromium, preferring the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

const listScript = `
(function() {
	var items = document.querySelectorAll('div.list-item, div.sightItemCard_box, div[class*="sightItem"]');
	var text = function(root, sels) {
		for (var i = 0; i < sels.length; i++) {
			var el = root.querySelector(sels[i]);
			if (el && el.innerText) return el.innerText.trim();
		}
		return '';
	};
	var out = [];
	for (var i = 0; i < items.length; i++) {
		var item = items[i];
		var title = item.querySelector('a.title, div.titleModule a, a[href*="/sight/"]');
		out.push({
			name:        title ? title.innerText.trim() : '',
			link:        title ? (title.getAttribute('href') || '') : '',
			rating:      text(item, ['span.score', 'span.commentScore', '[class*="score"]']),
			price:       text(item, ['span.price', '[class*="price"]']),
			address:     text(item, ['div.address', '[class*="address"]']),
			description: text(item, ['div.desc', '[class*="desc"]'])
		});
	}
	return out;
})()
`

const detailScript = `
(function() {
	var byLabel = function(label) {
		var nodes = document.querySelectorAll('div, span, p');
		for (var i = 0; i < nodes.length; i++) {
			var t = (nodes[i].innerText || '').trim();
			if (t.indexOf(label) === 0 && t.length < 200) {
				return t.substring(label.length).replace(/^[：:\s]+/, '');
			}
		}
		return '';
	};
	var img = document.querySelector('div.swiperItem img, div[class*="swiper"] img, img');
	return {
		opening_hours: byLabel('开放时间'),
		duration:      byLabel('建议游玩'),
		tips:          byLabel('温馨提示'),
		image_url:     img ? (img.getAttribute('src') || '') : ''
	};
})()
`
