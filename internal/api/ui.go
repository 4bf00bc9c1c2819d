package api

import (
	"net/http"
)

const playgroundHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>StoryLoom Playground</title>
    <script src="https://unpkg.com/cytoscape@3.28.1/dist/cytoscape.min.js"></script>
    <script src="https://unpkg.com/dagre@0.8.5/dist/dagre.min.js"></script>
    <script src="https://unpkg.com/cytoscape-dagre@2.5.0/cytoscape-dagre.js"></script>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #1a1a2e;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header {
            background: #16213e;
            padding: 12px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        header h1 { font-size: 16px; font-weight: normal; }
        #status { padding: 4px 10px; border-radius: 4px; font-size: 12px; }
        #status.connected { background: #1b4332; color: #95d5b2; }
        #status.disconnected { background: #7f1d1d; color: #fca5a5; }
        #status.connecting { background: #78350f; color: #fcd34d; }
        main { flex: 1; display: grid; grid-template-columns: 1fr 1fr 1fr; overflow: hidden; }
        section { display: flex; flex-direction: column; border-right: 1px solid #0f3460; overflow: hidden; }
        section h2 { font-size: 12px; color: #9ca3af; padding: 8px 12px; background: #16213e; }
        textarea {
            flex: 1;
            background: #1a1a2e;
            color: #eee;
            border: none;
            padding: 10px;
            font-family: monospace;
            font-size: 12px;
            resize: none;
        }
        .controls { display: flex; gap: 6px; padding: 8px 12px; background: #16213e; flex-wrap: wrap; }
        .controls button, .controls select {
            background: #2563eb;
            border: none;
            border-radius: 4px;
            padding: 6px 12px;
            color: #fff;
            font-family: monospace;
            font-size: 12px;
            cursor: pointer;
        }
        .controls select { background: #1a1a2e; border: 1px solid #0f3460; }
        .controls button:disabled { background: #374151; cursor: not-allowed; }
        #diagnostics { font-size: 12px; padding: 6px 12px; }
        #diagnostics .error { color: #fca5a5; }
        #diagnostics .warning { color: #fcd34d; }
        #transcript { flex: 1; overflow-y: auto; padding: 10px; font-size: 13px; }
        .line { padding: 4px 0; }
        .line.system { color: #9ca3af; font-style: italic; }
        .line.command { color: #a78bfa; }
        .line.end { color: #95d5b2; }
        .line .character { color: #60a5fa; font-weight: bold; margin-right: 6px; }
        .line .tags { color: #6b7280; margin-left: 8px; font-size: 11px; }
        #choices { padding: 8px 12px; display: flex; flex-direction: column; gap: 4px; }
        #choices button {
            text-align: left;
            background: #0f3460;
            border: none;
            border-radius: 4px;
            padding: 6px 10px;
            color: #eee;
            font-family: monospace;
            cursor: pointer;
        }
        #graph { flex: 1; }
        #tooltip {
            position: fixed;
            display: none;
            background: #16213e;
            border: 1px solid #0f3460;
            border-radius: 4px;
            padding: 8px;
            font-size: 12px;
            max-width: 320px;
            pointer-events: none;
        }
        .tooltip-title { font-weight: bold; color: #60a5fa; }
        .tooltip-preview { color: #9ca3af; font-style: italic; }
        .tooltip-tags { color: #6b7280; }
        footer {
            background: #16213e;
            padding: 8px 20px;
            border-top: 1px solid #0f3460;
            font-size: 11px;
            color: #6b7280;
        }
    </style>
</head>
<body>
    <header>
        <h1>StoryLoom Playground</h1>
        <span id="status" class="disconnected">Disconnected</span>
    </header>
    <main>
        <section>
            <h2>Script</h2>
            <div class="controls">
                <select id="scripts"></select>
                <button id="loadBtn">Load</button>
                <button id="saveBtn">Save</button>
                <button id="compileBtn">Compile &amp; Run</button>
            </div>
            <textarea id="source" spellcheck="false"></textarea>
            <div id="diagnostics"></div>
        </section>
        <section>
            <h2>Story</h2>
            <div class="controls">
                <button id="nextBtn">Next</button>
                <button id="restartBtn">Restart</button>
            </div>
            <div id="transcript"></div>
            <div id="choices"></div>
        </section>
        <section>
            <h2>Graph (click a node to play from it)</h2>
            <div id="graph"></div>
        </section>
    </main>
    <div id="tooltip"></div>
    <footer>
        <span id="phase">idle</span> | <span id="count">0</span> events | WebSocket: /ws/events
    </footer>

    <script>
        const $ = function(id) { return document.getElementById(id); };
        let cy = null;
        let eventCount = 0;
        let ws = null;
        let reconnectTimer = null;

        function api(method, path, body) {
            const opts = { method: method, headers: { 'Content-Type': 'application/json' } };
            if (body !== undefined) opts.body = JSON.stringify(body);
            return fetch(path, opts).then(function(res) {
                if (res.status === 204) return {};
                return res.json();
            });
        }

        function renderLine(l) {
            const div = document.createElement('div');
            div.className = 'line ' + l.kind;
            if (l.character) {
                const c = document.createElement('span');
                c.className = 'character';
                c.textContent = '[' + l.character + ']';
                div.appendChild(c);
            }
            div.appendChild(document.createTextNode(l.text));
            if (l.tags && l.tags.length) {
                const t = document.createElement('span');
                t.className = 'tags';
                t.textContent = l.tags.map(function(tag) {
                    return '#' + tag.key + (tag.value ? ':' + tag.value : '');
                }).join(' ');
                div.appendChild(t);
            }
            return div;
        }

        function renderState(s) {
            const tr = $('transcript');
            tr.innerHTML = '';
            (s.transcript || []).forEach(function(l) { tr.appendChild(renderLine(l)); });
            tr.scrollTop = tr.scrollHeight;

            const ch = $('choices');
            ch.innerHTML = '';
            (s.choices || []).forEach(function(c) {
                const b = document.createElement('button');
                b.textContent = c.number + '. ' + c.text;
                b.onclick = function() { api('POST', '/api/choose', { index: c.index }).then(update); };
                ch.appendChild(b);
            });

            const d = $('diagnostics');
            d.innerHTML = '';
            const diag = s.diagnostics || {};
            (diag.errors || []).forEach(function(e) {
                const p = document.createElement('div');
                p.className = 'error';
                p.textContent = e;
                d.appendChild(p);
            });
            (diag.warnings || []).forEach(function(w) {
                const p = document.createElement('div');
                p.className = 'warning';
                p.textContent = w;
                d.appendChild(p);
            });

            const c = s.controls || {};
            $('compileBtn').disabled = !c.compile;
            $('nextBtn').disabled = !c.next;
            $('restartBtn').disabled = !c.restart;
            $('phase').textContent = s.ready ? s.phase : (s.engineError ? 'engine failed: ' + s.engineError : 'loading');
        }

        function renderGraph(g) {
            if (!window.cytoscape) return;
            if (window.cytoscapeDagre && !renderGraph.registered) {
                cytoscape.use(window.cytoscapeDagre);
                renderGraph.registered = true;
            }
            if (!cy) {
                cy = cytoscape({
                    container: $('graph'),
                    style: [
                        { selector: 'node', style: { 'label': 'data(displayLabel)', 'color': '#eee', 'font-size': 10, 'background-color': '#0f3460', 'shape': 'round-rectangle', 'width': 'label', 'padding': 8, 'text-valign': 'center' } },
                        { selector: 'node.start', style: { 'border-width': 2, 'border-color': '#059669' } },
                        { selector: 'node.terminal', style: { 'border-width': 2, 'border-color': '#dc2626' } },
                        { selector: 'node.function', style: { 'shape': 'hexagon' } },
                        { selector: 'node.visited', style: { 'background-color': '#1b4332' } },
                        { selector: 'node.active', style: { 'background-color': '#2563eb' } },
                        { selector: 'edge', style: { 'width': 1, 'line-color': '#6b7280', 'target-arrow-color': '#6b7280', 'target-arrow-shape': 'triangle', 'curve-style': 'bezier', 'label': 'data(label)', 'font-size': 8, 'color': '#9ca3af' } },
                        { selector: 'edge.jump', style: { 'line-color': '#60a5fa', 'target-arrow-color': '#60a5fa' } },
                        { selector: 'edge.call', style: { 'line-color': '#c084fc', 'target-arrow-color': '#c084fc', 'line-style': 'dashed' } },
                        { selector: 'edge.call_return', style: { 'line-color': '#fcd34d', 'target-arrow-color': '#fcd34d', 'line-style': 'dashed' } },
                        { selector: 'edge.choice', style: { 'line-color': '#34d399', 'target-arrow-color': '#34d399', 'line-style': 'dashed' } },
                        { selector: 'edge.condition_true', style: { 'line-color': '#34d399', 'target-arrow-color': '#34d399', 'line-style': 'dotted' } },
                        { selector: 'edge.condition_false', style: { 'line-color': '#f87171', 'target-arrow-color': '#f87171', 'line-style': 'dotted' } },
                        { selector: 'edge.random', style: { 'line-color': '#fb923c', 'target-arrow-color': '#fb923c', 'line-style': 'dashed' } },
                        // Kinds the runtime reports but the closed set does not name.
                        { selector: 'edge.generic', style: { 'line-color': '#e5e7eb', 'target-arrow-color': '#e5e7eb', 'target-arrow-shape': 'vee', 'line-style': 'dashed' } }
                    ]
                });
                cy.on('tap', 'node', function(evt) {
                    api('POST', '/api/resume', { node: evt.target.data('nodeName') }).then(update);
                });
                cy.on('mouseover', 'node', function(evt) {
                    const name = evt.target.data('nodeName');
                    api('GET', '/api/nodes/' + encodeURIComponent(name)).then(function(n) {
                        if (!n.html) return;
                        const tip = $('tooltip');
                        tip.innerHTML = n.html;
                        const p = evt.renderedPosition || { x: 0, y: 0 };
                        const box = $('graph').getBoundingClientRect();
                        tip.style.left = (box.left + p.x + 12) + 'px';
                        tip.style.top = (box.top + p.y + 12) + 'px';
                        tip.style.display = 'block';
                    });
                });
                cy.on('mouseout', 'node', function() { $('tooltip').style.display = 'none'; });
            }
            const ids = g.elements.map(function(e) { return e.data.id; }).join(',');
            if (ids !== renderGraph.ids) {
                renderGraph.ids = ids;
                cy.elements().remove();
                cy.add(g.elements);
                if (g.layout) {
                    cy.layout({ name: g.layout.name, rankDir: g.layout.rankDir, nodeSep: g.layout.nodeSep, rankSep: g.layout.rankSep, edgeSep: g.layout.edgeSep, padding: g.layout.padding }).run();
                }
            } else {
                g.elements.forEach(function(e) {
                    const el = cy.getElementById(e.data.id);
                    if (el) el.classes(e.classes || '');
                });
            }
            const active = cy.nodes('.active');
            if (active.length) cy.animate({ center: { eles: active }, duration: 200 });
        }

        function update() {
            api('GET', '/api/state').then(renderState);
            api('GET', '/api/graph').then(renderGraph);
        }

        function loadScripts() {
            api('GET', '/api/scripts').then(function(list) {
                const sel = $('scripts');
                sel.innerHTML = '';
                (list || []).forEach(function(s) {
                    const o = document.createElement('option');
                    o.value = s.name;
                    o.textContent = s.name;
                    sel.appendChild(o);
                });
            });
        }

        $('loadBtn').onclick = function() {
            const name = $('scripts').value;
            if (!name) return;
            api('GET', '/api/scripts/' + encodeURIComponent(name)).then(function(s) {
                if (s.source !== undefined) $('source').value = s.source;
            });
        };
        $('saveBtn').onclick = function() {
            const name = prompt('Script name', $('scripts').value || 'untitled');
            if (!name) return;
            api('PUT', '/api/scripts/' + encodeURIComponent(name), { source: $('source').value }).then(loadScripts);
        };
        $('compileBtn').onclick = function() {
            api('POST', '/api/compile', { source: $('source').value }).then(update);
        };
        $('nextBtn').onclick = function() { api('POST', '/api/step').then(update); };
        $('restartBtn').onclick = function() { api('POST', '/api/restart').then(update); };

        function setStatus(status) {
            $('status').className = status;
            $('status').textContent = status.charAt(0).toUpperCase() + status.slice(1);
        }

        function connect() {
            if (ws && ws.readyState === WebSocket.OPEN) return;
            setStatus('connecting');
            const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + location.host + '/ws/events');
            ws.onopen = function() {
                setStatus('connected');
                if (reconnectTimer) {
                    clearTimeout(reconnectTimer);
                    reconnectTimer = null;
                }
            };
            ws.onmessage = function() {
                eventCount++;
                $('count').textContent = eventCount;
                clearTimeout(connect.pending);
                connect.pending = setTimeout(update, 50);
            };
            ws.onclose = function() {
                setStatus('disconnected');
                if (!reconnectTimer) {
                    reconnectTimer = setTimeout(function() {
                        reconnectTimer = null;
                        connect();
                    }, 3000);
                }
            };
            ws.onerror = function() { ws.close(); };
        }

        loadScripts();
        update();
        connect();
    </script>
</body>
</html>`

// uiHandler serves the playground page.
func uiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(playgroundHTML))
}
