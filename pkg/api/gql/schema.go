package gql

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/metrics"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// ErrNoSystemEndpoint is returned by schema operations on a client built
// without a system endpoint.
var ErrNoSystemEndpoint = errors.New("gql: no system endpoint configured")

const modelsQuery = `query ($project: String!) {
  viewer {
    project(name: $project) {
      id
      models {
        edges {
          node {
            id
            name
            namePlural
            itemCount
            fields {
              edges {
                node {
                  name
                  typeIdentifier
                  isList
                  isReadonly
                  isRequired
                  defaultValue
                  enumValues
                  relatedModel { name }
                }
              }
            }
          }
        }
      }
    }
  }
}`

type fieldNode struct {
	Name           string   `json:"name"`
	TypeIdentifier string   `json:"typeIdentifier"`
	IsList         bool     `json:"isList"`
	IsReadonly     bool     `json:"isReadonly"`
	IsRequired     bool     `json:"isRequired"`
	DefaultValue   *string  `json:"defaultValue"`
	EnumValues     []string `json:"enumValues"`
	RelatedModel   *struct {
		Name string `json:"name"`
	} `json:"relatedModel"`
}

type modelNode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NamePlural string `json:"namePlural"`
	ItemCount  int    `json:"itemCount"`
	Fields     struct {
		Edges []struct {
			Node fieldNode `json:"node"`
		} `json:"edges"`
	} `json:"fields"`
}

type modelsResponse struct {
	Viewer struct {
		Project *struct {
			ID     string `json:"id"`
			Models struct {
				Edges []struct {
					Node modelNode `json:"node"`
				} `json:"edges"`
			} `json:"models"`
		} `json:"project"`
	} `json:"viewer"`
}

func (n modelNode) toModel() model.Model {
	m := model.Model{ID: n.ID, Name: n.Name, NamePlural: n.NamePlural, ItemCount: n.ItemCount}
	for _, e := range n.Fields.Edges {
		f := model.Field{
			Name:           e.Node.Name,
			TypeIdentifier: model.FieldType(e.Node.TypeIdentifier),
			IsList:         e.Node.IsList,
			IsReadonly:     e.Node.IsReadonly,
			IsRequired:     e.Node.IsRequired,
			EnumValues:     e.Node.EnumValues,
		}
		if e.Node.DefaultValue != nil {
			f.DefaultValue = *e.Node.DefaultValue
		}
		if e.Node.RelatedModel != nil {
			f.RelatedModel = e.Node.RelatedModel.Name
		}
		m.Fields = append(m.Fields, f)
	}
	return m
}

// ListModels returns the project's models sorted by name.
func (c *Client) ListModels(ctx context.Context) ([]model.Model, error) {
	if c.system == nil {
		return nil, ErrNoSystemEndpoint
	}
	defer metrics.Timer(metrics.SchemaLoad)()

	var resp modelsResponse
	if err := c.run(ctx, c.system, modelsQuery, map[string]any{"project": c.opts.Project}, &resp); err != nil {
		return nil, api.Wrap("list models", "", "", err)
	}
	if resp.Viewer.Project == nil {
		return nil, api.NewError(api.KindNotFound, "list models", "", c.opts.Project, fmt.Errorf("project %q does not exist", c.opts.Project))
	}
	c.projectID = resp.Viewer.Project.ID

	out := make([]model.Model, 0, len(resp.Viewer.Project.Models.Edges))
	for _, e := range resp.Viewer.Project.Models.Edges {
		out = append(out, e.Node.toModel())
	}
	model.SortModels(out)
	return out, nil
}

const addModelMutation = `mutation ($input: AddModelInput!) {
  addModel(input: $input) {
    model { id name namePlural }
  }
}`

// AddModel creates an empty model in the project.
func (c *Client) AddModel(ctx context.Context, name string) (model.Model, error) {
	if c.system == nil {
		return model.Model{}, ErrNoSystemEndpoint
	}
	if !model.ValidateModelName(name) {
		return model.Model{}, api.NewError(api.KindValidation, "add model", name, "", errors.New("name must start with an uppercase letter and contain only letters and digits"))
	}
	if c.projectID == "" {
		if _, err := c.ListModels(ctx); err != nil {
			return model.Model{}, err
		}
	}
	input := map[string]any{
		"projectId":        c.projectID,
		"modelName":        name,
		"clientMutationId": name,
	}
	var resp struct {
		AddModel struct {
			Model modelNode `json:"model"`
		} `json:"addModel"`
	}
	if err := c.run(ctx, c.system, addModelMutation, map[string]any{"input": input}, &resp); err != nil {
		return model.Model{}, api.Wrap("add model", name, "", err)
	}
	m := resp.AddModel.Model.toModel()
	if m.Name == "" {
		m.Name = name
	}
	if len(m.Fields) == 0 {
		m.Fields = []model.Field{{Name: "id", TypeIdentifier: model.TypeID, IsReadonly: true, IsRequired: true}}
	}
	return m, nil
}
