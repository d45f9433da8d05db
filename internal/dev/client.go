package dev

// ClientScript forwards browser events to a live session and applies the
// patches it sends back. It is injected into every previewed page inside a
// script tag whose data-page attribute names the page.
const ClientScript = `
(function() {
    'use strict';

    var script = document.currentScript;
    var page = script ? script.getAttribute('data-page') : '';
    var events = ['click', 'keydown', 'keyup', 'input', 'change', 'submit', 'focusin', 'focusout'];
    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var ws = null;

    function byHID(hid) {
        return document.querySelector('[data-hid="' + hid + '"]');
    }

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '/_interactivity/live?page=' + encodeURIComponent(page));

        ws.onopen = function() {
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            switch (msg.type) {
                case 'ready':
                    console.log('[interactivity] live session for', msg.page);
                    break;
                case 'patches':
                    (msg.patches || []).forEach(apply);
                    break;
                case 'error':
                    console.error('[interactivity]', msg.code || '', msg.error);
                    break;
                case 'reload':
                    location.reload();
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    function apply(p) {
        var el = p.hid ? byHID(p.hid) : null;
        switch (p.op) {
            case 'SetAttr':
                if (el) el.setAttribute(p.key, p.value || '');
                break;
            case 'RemoveAttr':
                if (el) el.removeAttribute(p.key);
                break;
            case 'InsertNode':
                var parent = byHID(p.parent);
                if (!parent) break;
                if (!el && p.html) {
                    var tpl = document.createElement('template');
                    tpl.innerHTML = p.html;
                    el = tpl.content.firstElementChild;
                }
                if (el) parent.appendChild(el);
                break;
            case 'RemoveNode':
                if (el) el.remove();
                break;
            case 'Focus':
                if (el) el.focus();
                break;
            case 'Blur':
                if (el) el.blur();
                break;
            case 'SetInnerHTML':
                if (el) el.innerHTML = p.value || '';
                break;
        }
    }

    function forward(e) {
        if (!ws || ws.readyState !== WebSocket.OPEN) return;
        var target = e.target && e.target.closest ? e.target.closest('[data-hid]') : null;
        if (!target) return;
        if (e.type === 'submit') e.preventDefault();
        ws.send(JSON.stringify({
            type: 'event',
            hid: target.getAttribute('data-hid'),
            event: e.type,
            key: e.key || '',
            keyCode: e.keyCode || 0
        }));
    }

    events.forEach(function(type) {
        document.addEventListener(type, forward, true);
    });

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
`
