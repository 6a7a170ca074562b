// Package gql serves the GraphQL endpoint. It exposes the createUser mutation
// on top of the same services as the REST API.
package gql

import (
	"errors"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/core/ports"
)

// NewSchema builds the schema. posts resolves the post ids listed on a user.
func NewSchema(auth ports.AuthService, posts ports.PostService) (graphql.Schema, error) {
	var userType *graphql.Object

	postType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"_id":      {Type: graphql.NewNonNull(graphql.ID), Resolve: postField(func(p *domain.Post) any { return p.ID })},
				"title":    {Type: graphql.NewNonNull(graphql.String), Resolve: postField(func(p *domain.Post) any { return p.Title })},
				"content":  {Type: graphql.NewNonNull(graphql.String), Resolve: postField(func(p *domain.Post) any { return p.Content })},
				"imageUrl": {Type: graphql.NewNonNull(graphql.String), Resolve: postField(func(p *domain.Post) any { return p.ImageURL })},
				"creator": {
					Type: graphql.NewNonNull(userType),
					Resolve: postField(func(p *domain.Post) any {
						return &domain.User{ID: p.Creator.ID, Name: p.Creator.Name, Posts: []string{}}
					}),
				},
				"createdAt": {Type: graphql.NewNonNull(graphql.String), Resolve: postField(func(p *domain.Post) any { return p.CreatedAt.Format(time.RFC3339) })},
				"updatedAt": {Type: graphql.NewNonNull(graphql.String), Resolve: postField(func(p *domain.Post) any { return p.UpdatedAt.Format(time.RFC3339) })},
			}
		}),
	})

	userType = graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"_id":    {Type: graphql.NewNonNull(graphql.ID), Resolve: userField(func(u *domain.User) any { return u.ID })},
				"email":  {Type: graphql.NewNonNull(graphql.String), Resolve: userField(func(u *domain.User) any { return u.Email })},
				"name":   {Type: graphql.NewNonNull(graphql.String), Resolve: userField(func(u *domain.User) any { return u.Name })},
				"status": {Type: graphql.NewNonNull(graphql.String), Resolve: userField(func(u *domain.User) any { return u.Status })},
				// the digest is never exposed
				"password": {Type: graphql.String, Resolve: func(graphql.ResolveParams) (any, error) { return nil, nil }},
				"posts": {
					Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(postType))),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						u, ok := p.Source.(*domain.User)
						if !ok {
							return nil, nil
						}
						out := make([]*domain.Post, 0, len(u.Posts))
						for _, id := range u.Posts {
							post, err := posts.GetPost(p.Context, id)
							if errors.Is(err, domain.ErrNotFound) {
								continue
							}
							if err != nil {
								return nil, err
							}
							out = append(out, post)
						}
						return out, nil
					},
				},
			}
		}),
	})

	userInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":    {Type: graphql.NewNonNull(graphql.String)},
			"name":     {Type: graphql.NewNonNull(graphql.String)},
			"password": {Type: graphql.NewNonNull(graphql.String)},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"hello": {
				Type:    graphql.String,
				Resolve: func(graphql.ResolveParams) (any, error) { return "Hello World!", nil },
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootMutation",
		Fields: graphql.Fields{
			"createUser": {
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"userInput": {Type: userInput},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					in, ok := p.Args["userInput"].(map[string]any)
					if !ok {
						return nil, domain.Validation("Invalid input.")
					}
					return auth.Signup(p.Context, ports.SignupInput{
						Email:    stringArg(in, "email"),
						Name:     stringArg(in, "name"),
						Password: stringArg(in, "password"),
					})
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

func postField(get func(*domain.Post) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		post, ok := p.Source.(*domain.Post)
		if !ok {
			return nil, nil
		}
		return get(post), nil
	}
}

func userField(get func(*domain.User) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		u, ok := p.Source.(*domain.User)
		if !ok {
			return nil, nil
		}
		return get(u), nil
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
