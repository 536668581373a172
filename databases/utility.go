package databases

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// incidentPage translates the admin list's limit/page query into mongo
// find options. Newest reports come first so reviewers see fresh
// incidents at the top of every page.
type incidentPage struct {
	limit int64
	page  int64
}

func newIncidentPage(limit, page int) *incidentPage {
	return &incidentPage{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (p *incidentPage) findOpts() *options.FindOptions {
	l := p.limit
	skip := p.page*p.limit - p.limit

	return &options.FindOptions{
		Limit: &l,
		Skip:  &skip,
		Sort:  bson.D{{Key: "incident.createdAt", Value: -1}},
	}
}
