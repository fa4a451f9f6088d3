package handlers

import (
	"encoding/xml"
	"log"
	"net/http"
	"time"

	"newgenmusic/posts"

	"github.com/gin-gonic/gin"
)

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

var staticPages = []sitemapURL{
	{Loc: "/", ChangeFreq: "monthly", Priority: "1.0"},
	{Loc: "/blog", ChangeFreq: "weekly", Priority: "0.8"},
	{Loc: "/news", ChangeFreq: "weekly", Priority: "0.8"},
	{Loc: "/about", ChangeFreq: "monthly", Priority: "0.5"},
}

// Sitemap renders the public pages and every post. If posts cannot be listed
// the static pages are still served.
func Sitemap(svc *posts.Service, siteURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		today := time.Now().UTC().Format(time.DateOnly)
		set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
		for _, p := range staticPages {
			p.Loc = siteURL + p.Loc
			p.LastMod = today
			set.URLs = append(set.URLs, p)
		}

		list, err := svc.List(c.Request.Context(), posts.ListFilter{})
		if err != nil {
			log.Printf("[Sitemap] listing posts failed, serving static pages: %v", err)
		}
		for _, p := range list {
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        siteURL + "/posts/" + p.ID.Hex(),
				LastMod:    p.CreatedAt.UTC().Format(time.DateOnly),
				ChangeFreq: "weekly",
				Priority:   "0.6",
			})
		}

		body, err := xml.MarshalIndent(set, "", "  ")
		if err != nil {
			writeError(c, http.StatusInternalServerError, "internal", "Failed to render sitemap")
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), body...))
	}
}
