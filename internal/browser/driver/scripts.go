package driver

// Each script takes the selector (and any other argument) as a JSON literal
// through fmt verbs and returns a JSON-serializable value.

const stateScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return {found: false};
	const r = el.getBoundingClientRect();
	const s = window.getComputedStyle(el);
	const visible = r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
	return {found: true, visible: visible, enabled: !el.disabled, checked: !!el.checked};
})()`

const hitTestScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return {found: false};
	el.scrollIntoView({block: 'center', inline: 'center'});
	const r = el.getBoundingClientRect();
	const x = r.left + r.width / 2;
	const y = r.top + r.height / 2;
	const top = document.elementFromPoint(x, y);
	return {found: true, hit: !!top && (top === el || el.contains(top)), x: x, y: y};
})()`

// The click is deferred so a dialog raised by a handler cannot block the
// evaluation that triggered it.
const scriptClickScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	setTimeout(() => el.click(), 0);
	return true;
})()`

const clearScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.focus();
	el.value = '';
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`

const focusScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.focus();
	return true;
})()`

const optionsScript = `(() => {
	const el = document.querySelector(%s);
	if (!el || !el.options) return {found: false, labels: []};
	return {found: true, labels: Array.from(el.options).map(o => o.text.trim())};
})()`

const selectScript = `(() => {
	const el = document.querySelector(%s);
	if (!el || !el.options) return 'no-element';
	const want = %s;
	const opt = Array.from(el.options).find(o => o.text.trim() === want);
	if (!opt) return 'no-option';
	el.value = opt.value;
	opt.selected = true;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return 'ok';
})()`
