package browser

// pageLib is shared by the page scripts. It mirrors the extraction rules of
// the in-memory document: eligibility, label priority, select options and
// radio groups, and uid stamping.
const pageLib = `
const UID_ATTR = 'data-formfill-uid';
const SKIP_TYPES = new Set(['hidden', 'submit', 'button', 'reset', 'file', 'image', 'range', 'color']);
const collapse = (s) => (s || '').replace(/\s+/g, ' ').trim();
const tagOf = (el) => el.tagName.toLowerCase();
const typeOf = (el) => tagOf(el) === 'input' ? collapse(el.getAttribute('type') || 'text').toLowerCase() : '';

function isControl(el) {
  const tag = tagOf(el);
  if (tag === 'textarea' || tag === 'select') return true;
  return tag === 'input' && !SKIP_TYPES.has(typeOf(el));
}

function visible(el) {
  const style = getComputedStyle(el);
  if (style.display === 'none' || style.visibility === 'hidden' || style.visibility === 'collapse') return false;
  const box = el.getBoundingClientRect();
  return box.width > 0 && box.height > 0;
}

function eligible(el) {
  return isControl(el) && !el.matches(':disabled') && !el.hasAttribute('readonly') && visible(el);
}

function text(node, skipControls) {
  if (!node) return '';
  let out = '';
  const visit = (n) => {
    if (n.nodeType === Node.TEXT_NODE) { out += n.data + ' '; return; }
    if (n.nodeType !== Node.ELEMENT_NODE) return;
    const tag = tagOf(n);
    if (tag === 'script' || tag === 'style' || tag === 'template') return;
    if (skipControls && (tag === 'select' || tag === 'textarea')) return;
    n.childNodes.forEach(visit);
  };
  visit(node);
  return collapse(out);
}

function siblingText(el) {
  const look = (start, step) => {
    for (let c = start; c; c = step(c)) {
      if (c.nodeType === Node.TEXT_NODE) {
        const t = collapse(c.data);
        if (t) return t;
        continue;
      }
      if (c.nodeType !== Node.ELEMENT_NODE) continue;
      if (isControl(c) || c.querySelector('input, select, textarea')) return null;
      const tag = tagOf(c);
      if (tag === 'script' || tag === 'style' || tag === 'template' || tag === 'br') continue;
      const t = text(c, false);
      if (t) return t;
    }
    return '';
  };
  const before = look(el.previousSibling, (c) => c.previousSibling);
  if (before) return before;
  return look(el.nextSibling, (c) => c.nextSibling) || '';
}

function labelOf(el) {
  const aria = collapse(el.getAttribute('aria-label'));
  if (aria) return aria;
  const ref = el.getAttribute('aria-labelledby');
  if (ref) {
    const parts = ref.split(/\s+/).filter(Boolean).map((id) => text(document.getElementById(id), false)).filter(Boolean);
    if (parts.length) return parts.join(' ');
  }
  if (el.id) {
    const l = Array.from(document.querySelectorAll('label[for]')).find((l) => l.getAttribute('for') === el.id);
    const t = text(l, true);
    if (t) return t;
  }
  const anc = el.closest('label');
  if (anc) {
    const t = text(anc, true);
    if (t) return t;
  }
  return siblingText(el);
}

function optionsOf(el) {
  return Array.from(el.querySelectorAll('option')).filter((o) => !o.hidden && getComputedStyle(o).display !== 'none');
}

function radioGroup(el) {
  const name = el.getAttribute('name');
  if (!name) return [];
  const form = el.closest('form');
  return Array.from(document.querySelectorAll('input[type=radio i]'))
    .filter((r) => r.getAttribute('name') === name && r.closest('form') === form && !r.matches(':disabled'));
}

function rawField(el) {
  const raw = {
    tag: tagOf(el),
    type: typeOf(el),
    name: el.getAttribute('name') || '',
    id: el.getAttribute('id') || '',
    placeholder: el.getAttribute('placeholder') || '',
    label: labelOf(el),
    ariaLabel: collapse(el.getAttribute('aria-label')),
    autocomplete: el.getAttribute('autocomplete') || '',
    required: el.hasAttribute('required') || (el.getAttribute('aria-required') || '').toLowerCase() === 'true',
    options: [],
    group: [],
  };
  if (raw.tag === 'select') {
    raw.options = optionsOf(el).map((o) => ({ text: text(o, false), value: o.hasAttribute('value') ? o.getAttribute('value') : text(o, false) }));
  } else if (raw.type === 'radio' && raw.name) {
    raw.group = radioGroup(el).map((r) => ({ text: labelOf(r), value: r.hasAttribute('value') ? r.getAttribute('value') : 'on' }));
  }
  return raw;
}

function nextUID() {
  for (;;) {
    window.__formfillSeq = (window.__formfillSeq || 0) + 1;
    const uid = 'ff-' + window.__formfillSeq;
    if (!document.querySelector('[' + UID_ATTR + '="' + uid + '"]')) return uid;
  }
}

function byUID(uid) {
  return document.querySelector('[' + UID_ATTR + '="' + CSS.escape(uid) + '"]');
}

function fire(el) {
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
}

function nativeSet(el, prop, value) {
  const proto = Object.getPrototypeOf(el);
  const desc = Object.getOwnPropertyDescriptor(proto, prop) ||
    Object.getOwnPropertyDescriptor(HTMLInputElement.prototype, prop);
  desc.set.call(el, value);
}
`

// collectScript returns a JSON array of {uid, raw} for eligible controls in
// document order. With stamp unset no attribute is written and uid is the
// existing stamp, if any.
const collectScript = `(arg) => {` + pageLib + `
  const seen = new Set();
  const out = [];
  for (const el of document.querySelectorAll('input, textarea, select')) {
    if (!eligible(el)) continue;
    let uid = el.getAttribute(UID_ATTR) || '';
    if (arg.stamp) {
      if (!uid || seen.has(uid)) {
        uid = nextUID();
        el.setAttribute(UID_ATTR, uid);
      }
      seen.add(uid);
    }
    out.push({ uid: uid, raw: rawField(el) });
  }
  return JSON.stringify(out);
}`

// describeScript returns the raw field bound to uid as JSON, or "" when the
// element is gone.
const describeScript = `(arg) => {` + pageLib + `
  const el = byUID(arg.uid);
  if (!el) return '';
  return JSON.stringify(rawField(el));
}`

// applyScript performs one planned write and dispatches input and change.
// It returns false when the target no longer exists.
const applyScript = `(arg) => {` + pageLib + `
  const el = byUID(arg.uid);
  if (!el) return false;
  switch (arg.kind) {
    case 'text':
      nativeSet(el, 'value', arg.text);
      fire(el);
      return true;
    case 'select': {
      const opt = optionsOf(el)[arg.index];
      if (!opt) return false;
      nativeSet(el, 'value', opt.value);
      opt.selected = true;
      fire(el);
      return true;
    }
    case 'checkbox':
      nativeSet(el, 'checked', arg.checked);
      fire(el);
      return true;
    case 'radio': {
      const target = radioGroup(el)[arg.index];
      if (!target) return false;
      nativeSet(target, 'checked', true);
      fire(target);
      return true;
    }
  }
  return false;
}`
