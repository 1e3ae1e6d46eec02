package viz

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
)

// ErrNilGraph is returned when GenerateHTML is given no graph.
var ErrNilGraph = errors.New("graph cannot be nil")

var compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout string // "tree", "force", or "circle"
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{Layout: "tree"}
}

// ValidLayouts lists the supported layout names.
var ValidLayouts = []string{"tree", "force", "circle"}

// GenerateHTML renders graph as a self-contained page.
func GenerateHTML(graph *GraphData, opts HTMLOptions) (string, error) {
	if graph == nil {
		return "", ErrNilGraph
	}
	layout, err := layoutToCytoscape(opts.Layout)
	if err != nil {
		return "", err
	}

	graphJSON := `{"nodes":[],"edges":[]}`
	if !graph.IsEmpty() {
		graphJSON, err = graph.ToCytoscapeJSON()
		if err != nil {
			return "", err
		}
	}

	title := graph.Title
	if title == "" {
		title = "Keyword graph"
	}

	var buf bytes.Buffer
	err = compiledTemplate.Execute(&buf, templateData{
		Title:     title,
		GraphJSON: template.JS(graphJSON),
		Layout:    layout,
		Empty:     graph.IsEmpty(),
	})
	if err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return buf.String(), nil
}

type templateData struct {
	Title     string
	GraphJSON template.JS
	Layout    string
	Empty     bool
}

func layoutToCytoscape(layout string) (string, error) {
	switch layout {
	case "", "tree":
		return "breadthfirst", nil
	case "force":
		return "cose", nil
	case "circle":
		return "concentric", nil
	default:
		return "", fmt.Errorf("invalid layout %q: must be tree, force, or circle", layout)
	}
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f5f5f5; }
    #cy { width: 100%; height: 100vh; background: white; }
    #tooltip {
      position: absolute; display: none; background: white; border: 1px solid #ccc;
      border-radius: 4px; padding: 8px 12px; max-width: 320px; font-size: 13px;
      box-shadow: 0 2px 8px rgba(0,0,0,0.15); pointer-events: none; z-index: 1000;
    }
    #tooltip .label { font-weight: bold; margin-bottom: 4px; }
    #tooltip .detail { color: #555; margin: 2px 0; }
    .empty-state { display: flex; justify-content: center; align-items: center; height: 100vh; color: #666; }
  </style>
</head>
<body>
{{if .Empty}}
  <div class="empty-state"><h2>No keywords were extracted for {{.Title}}</h2></div>
{{else}}
  <div id="cy"></div>
  <div id="tooltip"></div>
  <script>
    (function() {
      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: {{.GraphJSON}},
        style: [
          {
            selector: 'node',
            style: {
              'label': 'data(label)',
              'font-size': '10px',
              'text-valign': 'bottom',
              'text-margin-y': '4px',
              'background-color': 'mapData(simScaled, 0, 1, #c6dbef, #08519c)',
              'width': 'mapData(paperCount, 0, 10, 18, 40)',
              'height': 'mapData(paperCount, 0, 10, 18, 40)'
            }
          },
          {
            selector: 'node[type="root"]',
            style: { 'background-color': '#E8923A', 'shape': 'diamond', 'width': 45, 'height': 45, 'font-weight': 'bold' }
          },
          {
            selector: 'edge',
            style: {
              'line-color': '#95A5A6', 'target-arrow-color': '#95A5A6',
              'target-arrow-shape': 'triangle', 'curve-style': 'bezier', 'width': 1.5
            }
          },
          { selector: '.dimmed', style: { 'opacity': 0.2 } }
        ],
        layout: { name: "{{.Layout}}", directed: true, roots: 'node[type="root"]', animate: false }
      });

      const tooltip = document.getElementById('tooltip');
      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;').replace(/</g, '&lt;').replace(/>/g, '&gt;').replace(/"/g, '&quot;');
      }
      cy.on('mouseover', 'node', function(evt) {
        const d = evt.target.data();
        let html = '<div class="label">' + escapeHtml(d.label) + '</div>';
        html += '<div class="detail">depth ' + d.depth + ', sim ' + d.sim.toFixed(3) + '</div>';
        html += '<div class="detail">' + d.paperCount + ' papers</div>';
        if (d.example) html += '<div class="detail"><i>' + escapeHtml(d.example) + '</i></div>';
        tooltip.innerHTML = html;
        tooltip.style.display = 'block';
        const pos = evt.renderedPosition || evt.position;
        tooltip.style.left = (pos.x + 15) + 'px';
        tooltip.style.top = (pos.y + 15) + 'px';
      });
      cy.on('mouseout', 'node', function() { tooltip.style.display = 'none'; });
      cy.on('tap', 'node', function(evt) {
        const keep = evt.target.successors().add(evt.target.predecessors()).add(evt.target);
        cy.elements().removeClass('dimmed');
        cy.elements().not(keep).addClass('dimmed');
      });
      cy.on('tap', function(evt) {
        if (evt.target === cy) cy.elements().removeClass('dimmed');
      });
    })();
  </script>
{{end}}
</body>
</html>`
