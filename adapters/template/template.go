package reporttemplate

const defaultReportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ title }}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem; color: #1a1a2e; }
  h1 { font-size: 1.4rem; margin-bottom: 0.25rem; }
  .meta { color: #666; font-size: 0.8rem; margin-bottom: 1.5rem; }
  .kpis { display: flex; flex-wrap: wrap; gap: 1rem; margin-bottom: 1.5rem; }
  .kpi { border: 1px solid #ddd; border-radius: 6px; padding: 0.75rem 1.25rem; min-width: 8rem; }
  .kpi .value { font-size: 1.6rem; font-weight: 600; }
  .kpi .label { color: #666; font-size: 0.75rem; text-transform: uppercase; }
  table { border-collapse: collapse; width: 100%; font-size: 0.85rem; }
  th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; vertical-align: top; }
  th { background: #f4f4f8; }
  tr:nth-child(even) td { background: #fafafc; }
</style>
</head>
<body>
<h1>{{ title }}</h1>
<div class="meta">Generated {{ generated_at }} &middot; {{ row_count }} rows</div>
{% if kpis %}
<div class="kpis">
  {% for kpi in kpis %}
  <div class="kpi">
    <div class="value">{{ kpi.value }}</div>
    <div class="label">{{ kpi.label }}</div>
  </div>
  {% endfor %}
</div>
{% endif %}
<table>
  <thead>
    <tr>{% for column in columns %}<th>{{ column }}</th>{% endfor %}</tr>
  </thead>
  <tbody>
    {% for row in rows %}
    <tr>{% for cell in row %}<td>{{ cell }}</td>{% endfor %}</tr>
    {% endfor %}
  </tbody>
</table>
</body>
</html>
`
