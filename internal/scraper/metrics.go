package scraper

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maltedev/tweet-timeline-scraper/internal/models"
	"github.com/maltedev/tweet-timeline-scraper/internal/search"
)

type metricMiddleware struct {
	next Crawler

	crawlSeconds  *prometheus.HistogramVec
	tweetsScraped *prometheus.CounterVec
}

func (m *metricMiddleware) Crawl(ctx context.Context, q search.Query, tmpl models.Template) ([]models.Record, error) {
	st := time.Now()

	records, err := m.next.Crawl(ctx, q, tmpl)

	m.crawlSeconds.WithLabelValues(q.Handle(), strconv.FormatBool(err != nil)).Observe(time.Since(st).Seconds())
	m.tweetsScraped.WithLabelValues(q.Handle()).Add(float64(len(records)))

	return records, err
}

func NewMetricMiddleware(next Crawler, reg prometheus.Registerer) Crawler {
	crawl := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tweet_timeline_scraper",
		Subsystem: "timeline",
		Name:      "crawl_seconds",
		Help:      "Timeline crawl duration in seconds",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"user", "error"})

	tweets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tweet_timeline_scraper",
		Subsystem: "timeline",
		Name:      "tweets_scraped_total",
		Help:      "Tweets scraped from search timelines",
	}, []string{"user"})

	reg.MustRegister(crawl, tweets)

	return &metricMiddleware{
		next:          next,
		crawlSeconds:  crawl,
		tweetsScraped: tweets,
	}
}
